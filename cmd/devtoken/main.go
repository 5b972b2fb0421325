// Command devtoken mints an access token for local development. It uses the
// server's secret and token validity (same env, JSON and -s/-t flags).
//
//	devtoken -user u-1 -name Mary -role SCOUT -farm farm-1
package main

import (
	"flag"
	"fmt"
	"os"

	"github.com/katlaang/pestscan-sub001/internal/flagx"
	"github.com/katlaang/pestscan-sub001/internal/server/auth"
	"github.com/katlaang/pestscan-sub001/internal/server/config"
	"github.com/katlaang/pestscan-sub001/internal/server/models"
)

func main() {
	cfg := config.LoadConfig()

	fs := flag.NewFlagSet("devtoken", flag.ExitOnError)
	user := fs.String("user", "", "user id (required)")
	name := fs.String("name", "", "display name")
	role := fs.String("role", string(models.RoleScout), "SUPER_ADMIN, FARM_ADMIN, MANAGER or SCOUT")
	farm := fs.String("farm", "", "farm the token is scoped to (empty only for SUPER_ADMIN)")
	_ = fs.Parse(flagx.FilterArgs(os.Args[1:], []string{"-user", "-name", "-role", "-farm"}))

	actor := models.Actor{ID: *user, Name: *name, Role: models.Role(*role)}
	if actor.ID == "" || !actor.Role.Valid() {
		fs.Usage()
		os.Exit(2)
	}
	if *farm == "" && actor.Role != models.RoleSuperAdmin {
		fmt.Fprintln(os.Stderr, "-farm is required unless -role is SUPER_ADMIN")
		os.Exit(2)
	}

	token, err := auth.GenerateToken(actor, *farm, []byte(cfg.SecretKey), cfg.AccessTokenValidityDuration)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	fmt.Println(token)
}
