// The main package for the speechscraper executable.
package main

import (
	"github.com/JakeFAU/speech-scraper/cmd"
)

// main defers all execution to the Cobra CLI.
func main() {
	cmd.Execute()
}
