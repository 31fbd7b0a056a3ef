package config

import (
	"flag"
	"time"

	"github.com/d-madiou/to-meet-yours/internal/flagx"
)

// parseFlags populates selected Config fields from command-line flags.
//
// Supported flags (short forms):
//
//	-a string   HTTP bind address (e.g., ":8000")
//	-s string   token HMAC secret key
//	-t int      token validity, minutes (0 disables expiry)
//	-f int      free messages per receiver per day
//	-k int      coin cost of a paid message
//	-b int      starting coin balance of new accounts
func parseFlags(config *Config, args []string) {
	args = flagx.FilterArgs(args, []string{"-a", "-s", "-t", "-f", "-k", "-b"})

	fs := flag.NewFlagSet("mockapi", flag.ContinueOnError)

	fs.StringVar(&config.Addr, "a", config.Addr, "address and port to run server")
	fs.StringVar(&config.SecretKey, "s", config.SecretKey, "secret key")
	tokenTTL := fs.Int("t", int(config.TokenTTL.Minutes()), "token validity duration (in minutes)")
	fs.IntVar(&config.FreeMessagesPerDay, "f", config.FreeMessagesPerDay, "free messages per receiver per day")
	fs.IntVar(&config.MessageCost, "k", config.MessageCost, "coin cost of a paid message")
	fs.IntVar(&config.InitialBalance, "b", config.InitialBalance, "initial coin balance")

	if err := fs.Parse(args); err != nil {
		panic(err)
	}

	config.TokenTTL = time.Duration(*tokenTTL) * time.Minute
}
