package common

import (
	"fmt"

	"github.com/ternarybob/arbor"
	"github.com/ternarybob/banner"
)

// PrintBanner displays the application banner and logs where the server will listen
func PrintBanner(config *Config, logger arbor.ILogger) {
	banner.Print("Shiftlog", GetVersion())

	logger.Info().
		Str("version", GetVersion()).
		Str("environment", config.Environment).
		Str("address", fmt.Sprintf("%s:%d", config.Server.Host, config.Server.Port)).
		Str("storage", config.Storage.Type).
		Msg("Shiftlog starting")
}
