package main

import "github.com/pdfretriever/pdfretriever/cmd/pdfretriever/cmd"

func main() {
	cmd.Execute()
}
