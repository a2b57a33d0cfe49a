// sdm-twin runs a local stand-in for the services fancycle depends on: the
// secret store, the OAuth token endpoint, and the SDM command API. Point a
// fancycle config at it to run the whole flow with no Google account.
package main

import (
	"log"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/fancycle/fancycle/internal/sdmtwin"
	"github.com/fancycle/fancycle/internal/webcore"
)

// seedFile is the optional YAML file passed with -config.
type seedFile struct {
	ClientID     string            `yaml:"client_id"`
	ClientSecret string            `yaml:"client_secret"`
	RefreshToken string            `yaml:"refresh_token"`
	Secrets      map[string]string `yaml:"secrets"`
}

func defaultSeed() seedFile {
	return seedFile{
		ClientID:     "twin-client",
		ClientSecret: "twin-client-secret",
		RefreshToken: "twin-refresh-token",
		Secrets: map[string]string{
			"nest-client-id":     "twin-client",
			"nest-client-secret": "twin-client-secret",
			"nest-refresh-token": "twin-refresh-token",
			"nest-project-id":    "twin-project",
		},
	}
}

func main() {
	flags := webcore.ParseFlags("sdm-twin")

	seed := defaultSeed()
	if flags.ConfigPath != "" {
		data, err := os.ReadFile(flags.ConfigPath)
		if err != nil {
			log.Fatalf("reading seed file: %v", err)
		}
		if err := yaml.Unmarshal(data, &seed); err != nil {
			log.Fatalf("parsing seed file: %v", err)
		}
	}

	twin := sdmtwin.New(sdmtwin.Credentials{
		ClientID:     seed.ClientID,
		ClientSecret: seed.ClientSecret,
		RefreshToken: seed.RefreshToken,
	})
	for name, value := range seed.Secrets {
		twin.SeedSecret(name, value)
	}

	srv := webcore.New(flags)
	twin.Routes(srv.Router)

	srv.Logger.Info("sdm-twin ready",
		"port", flags.Port,
		"seeded_secrets", len(seed.Secrets),
	)

	if err := srv.Serve(); err != nil {
		log.Fatalf("server error: %v", err)
	}
}
