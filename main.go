package main

import "complaintbot/internal/app"

func main() {
	app.Main()
}
