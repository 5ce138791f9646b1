package main

import (
	"context"
	"log"
	"os"

	"github.com/dmitrijs2005/intrusionbot/internal/logging"
	"github.com/dmitrijs2005/intrusionbot/internal/publish"
	"github.com/dmitrijs2005/intrusionbot/internal/publish/config"
	"github.com/spf13/afero"
)

func main() {

	ctx := context.Background()
	cfg := config.LoadConfig()

	logger, err := logging.New(logging.Options{Level: "info"})
	if err != nil {
		log.Fatalf("%v", err)
	}

	if cfg.Password == "" {
		pw, err := publish.PromptPassword(os.Stderr)
		if err != nil {
			log.Fatalf("reading password: %v", err)
		}
		cfg.Password = pw
	}

	p := publish.New(afero.NewOsFs(), nil, logger)
	if err := p.Publish(ctx, cfg); err != nil {
		log.Fatalf("%v", err)
	}

	log.Printf("%s published", cfg.Name)
}
