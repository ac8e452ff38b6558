package main

import (
	"log"

	"github.com/Santonastaso/scheduler-demo-sub000/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		log.Fatalf("scheduler: %v", err)
	}
}
