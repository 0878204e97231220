package main

import (
	"log"
	"os"

	"github.com/mirrorsync/mirrorsync/internal/config"
)

// Writes the JSON schema of the mirrorsync configuration file, for editors
// and for validating CI configuration ahead of a run.
func main() {
	if len(os.Args) < 2 {
		log.Fatalf("usage: %s path/to/schema.json", os.Args[0])
	}
	bs, err := config.ReflectSchema()
	if err != nil {
		log.Fatal(err)
	}
	if err := os.WriteFile(os.Args[1], append(bs, '\n'), 0o644); err != nil {
		log.Fatal(err)
	}
}
