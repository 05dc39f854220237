package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"

	"github.com/calehh/treasury-app/app"
	"github.com/cometbft/cometbft/rpc/client/http"
	"github.com/spf13/cobra"
)

type queryArguments struct {
	Url string
}

var queryArgs queryArguments

var queryCmd = &cobra.Command{
	Use:   "query",
	Short: "Query treasury state",
}

func init() {
	urlFlag(queryCmd, &queryArgs.Url)
	queryCmd.AddCommand(
		newQueryCmd("balance", "Treasury holdings", 0, app.PathBalance, nil),
		newQueryCmd("proposal [index]", "Proposal by index", 1, app.PathProposal, proposalRequest),
		newQueryCmd("confirmed [index] [address]", "Whether address confirmed the proposal", 2, app.PathConfirmed, func(args []string) (app.QueryRequest, error) {
			qr, err := proposalRequest(args)
			if err != nil {
				return qr, err
			}
			qr.Account, err = parseAddress(args[1])
			return qr, err
		}),
		newQueryCmd("managers", "Manager roster and threshold", 0, app.PathManagers, nil),
		newQueryCmd("remaining", "Remaining daily withdrawal", 0, app.PathRemaining, nil),
		newQueryCmd("account [address]", "Account balance and nonce", 1, app.PathAccount, accountRequest),
		newQueryCmd("roles [address]", "Roles held by address", 1, app.PathRoles, accountRequest),
		newQueryCmd("config", "Treasury configuration", 0, app.PathConfig, nil),
	)
}

func proposalRequest(args []string) (qr app.QueryRequest, err error) {
	qr.Proposal, err = strconv.ParseUint(args[0], 10, 64)
	return
}

func accountRequest(args []string) (qr app.QueryRequest, err error) {
	qr.Account, err = parseAddress(args[0])
	return
}

func newQueryCmd(use, short string, nArgs int, path string, request func(args []string) (app.QueryRequest, error)) *cobra.Command {
	return &cobra.Command{
		Use:   use,
		Short: short,
		Args:  cobra.ExactArgs(nArgs),
		RunE: func(cmd *cobra.Command, args []string) error {
			var qr app.QueryRequest
			var err error
			if request != nil {
				if qr, err = request(args); err != nil {
					return err
				}
			}
			cli, err := http.New(queryArgs.Url, "/websocket")
			if err != nil {
				return err
			}
			var out json.RawMessage
			if err = abciQuery(context.Background(), cli, path, qr, &out); err != nil {
				return err
			}
			fmt.Println(string(out))
			return nil
		},
	}
}

func abciQuery(ctx context.Context, cli *http.HTTP, path string, qr app.QueryRequest, v any) error {
	dat, err := json.Marshal(qr)
	if err != nil {
		return err
	}
	res, err := cli.ABCIQuery(ctx, path, dat)
	if err != nil {
		return fmt.Errorf("request err:%w", err)
	}
	if res.Response.Code != 0 {
		return errors.New(res.Response.Log)
	}
	return json.Unmarshal(res.Response.Value, v)
}
