package main

import "pfm/internal/app/server"

func main() {
	server.Run()
}
