package main

import (
	"flag"
	"log"
	"os"

	"github.com/dvasilkov/catalogsync/internal/buildinfo"
	"github.com/dvasilkov/catalogsync/internal/devserver"
)

func main() {

	buildinfo.PrintBuildData(os.Stdout)

	addr := flag.String("a", "127.0.0.1:8080", "address and port to listen on")
	flag.Parse()

	srv := devserver.NewServer(devserver.NewStore())
	log.Printf("dev sync server listening on %s", *addr)
	if err := srv.Run(*addr); err != nil {
		log.Fatalf("%v", err)
	}
}
