package main

func main() {
	// Bootstrap (Cobra handles CLI)
	Execute()
}
