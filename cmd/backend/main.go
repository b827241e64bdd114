package main

import (
	"log"

	"ringi/internal/api"
)

func main() {
	log.Println("App start")
	api.StartServer()
	log.Println("App terminated")
}
