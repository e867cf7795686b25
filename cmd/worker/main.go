package main

import "picstore_backend/internal/app"

func main() {
	app.Run()
}
