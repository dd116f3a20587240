package main

import (
	"flag"
	"fmt"
	"log"
	"log/slog"
	"os"

	"github.com/jwtly10/go-postjson/internal/server"
)

// This is an example server with a flag [-port] for setting the port to run the server on
// Used to try postjson locally: POSTJSON_URL=http://localhost:3000/posts postjson title hello
func main() {
	port := flag.String("port", "3000", "Port to run the server on")
	flag.Parse()

	logger := slog.New(slog.NewTextHandler(os.Stdout, nil))
	srv := server.NewServer(fmt.Sprintf(":%s", *port), server.NewPostsHandler(logger), logger)

	fmt.Printf("Starting example server on :%s\n", *port)
	if err := srv.ListenAndServe(); err != nil {
		log.Fatal(err)
	}
}
