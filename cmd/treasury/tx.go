package main

import (
	"context"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"strconv"

	"github.com/calehh/treasury-app/app"
	"github.com/calehh/treasury-app/crypto"
	"github.com/calehh/treasury-app/state"
	"github.com/calehh/treasury-app/tx"
	"github.com/calehh/treasury-app/types"
	"github.com/cometbft/cometbft/rpc/client/http"
	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"
	"github.com/spf13/cobra"
)

type txArguments struct {
	Url    string
	Nonce  int64
	Skey   string
	NoSend bool
}

var txArgs txArguments

var txCmd = &cobra.Command{
	Use:   "tx",
	Short: "Sign and broadcast treasury transactions",
}

func init() {
	urlFlag(txCmd, &txArgs.Url)
	txCmd.PersistentFlags().Int64VarP(&txArgs.Nonce, "nonce", "n", -1, "account nonce, queried when negative")
	txCmd.PersistentFlags().StringVarP(&txArgs.Skey, "skeyPath", "s", "./config/treasury_key", "private key path")
	txCmd.PersistentFlags().BoolVarP(&txArgs.NoSend, "nosend", "", false, "print the signed transaction instead of sending it")

	txCmd.AddCommand(
		newTxCmd("deposit [amount]", "Deposit into the treasury", 1, tx.TxTypeDeposit, func(args []string) (any, error) {
			amount, err := uint256.FromDecimal(args[0])
			return &tx.DepositTx{Amount: amount}, err
		}),
		newTxCmd("propose [target] [value] [description] [payload-hex]", "Create a proposal", 3, tx.TxTypePropose, func(args []string) (any, error) {
			target, err := parseAddress(args[0])
			if err != nil {
				return nil, err
			}
			value, err := uint256.FromDecimal(args[1])
			if err != nil {
				return nil, err
			}
			var payload []byte
			if len(args) > 3 {
				if payload, err = hex.DecodeString(args[3]); err != nil {
					return nil, err
				}
			}
			return &tx.ProposeTx{Target: target, Value: value, Description: args[2], Payload: payload}, nil
		}),
		newTxCmd("confirm [proposal]", "Confirm a proposal", 1, tx.TxTypeConfirm, func(args []string) (any, error) {
			idx, err := strconv.ParseUint(args[0], 10, 64)
			return &tx.ConfirmTx{Proposal: idx}, err
		}),
		newTxCmd("execute [proposal]", "Execute a confirmed proposal", 1, tx.TxTypeExecute, func(args []string) (any, error) {
			idx, err := strconv.ParseUint(args[0], 10, 64)
			return &tx.ExecuteTx{Proposal: idx}, err
		}),
		newTxCmd("cancel [proposal]", "Cancel a proposal", 1, tx.TxTypeCancel, func(args []string) (any, error) {
			idx, err := strconv.ParseUint(args[0], 10, 64)
			return &tx.CancelTx{Proposal: idx}, err
		}),
		newTxCmd("emergency-withdraw [to] [amount]", "Withdraw without a proposal", 2, tx.TxTypeEmergencyWithdraw, func(args []string) (any, error) {
			to, err := parseAddress(args[0])
			if err != nil {
				return nil, err
			}
			amount, err := uint256.FromDecimal(args[1])
			return &tx.EmergencyWithdrawTx{To: to, Amount: amount}, err
		}),
		newTxCmd("add-manager [address]", "Add a manager", 1, tx.TxTypeAddManager, managerPayload),
		newTxCmd("remove-manager [address]", "Remove a manager", 1, tx.TxTypeRemoveManager, managerPayload),
		newTxCmd("set-confirmations [required]", "Update the confirmation threshold", 1, tx.TxTypeUpdateConfirmations, func(args []string) (any, error) {
			n, err := strconv.ParseUint(args[0], 10, 64)
			return &tx.UpdateConfirmationsTx{Required: n}, err
		}),
		newTxCmd("set-daily-limit [limit]", "Update the daily withdrawal limit", 1, tx.TxTypeUpdateDailyLimit, func(args []string) (any, error) {
			limit, err := uint256.FromDecimal(args[0])
			return &tx.UpdateDailyLimitTx{Limit: limit}, err
		}),
		newTxCmd("pause", "Pause the treasury", 0, tx.TxTypePause, func(args []string) (any, error) {
			return &tx.PauseTx{}, nil
		}),
		newTxCmd("unpause", "Unpause the treasury", 0, tx.TxTypeUnpause, func(args []string) (any, error) {
			return &tx.PauseTx{}, nil
		}),
		newTxCmd("grant-role [role] [address]", "Grant a role", 2, tx.TxTypeGrantRole, rolePayload),
		newTxCmd("revoke-role [role] [address]", "Revoke a role", 2, tx.TxTypeRevokeRole, rolePayload),
	)
}

func parseAddress(s string) (common.Address, error) {
	if !common.IsHexAddress(s) {
		return common.Address{}, fmt.Errorf("invalid address %q", s)
	}
	return common.HexToAddress(s), nil
}

func managerPayload(args []string) (any, error) {
	addr, err := parseAddress(args[0])
	return &tx.ManagerTx{Manager: addr}, err
}

func rolePayload(args []string) (any, error) {
	role, err := types.ParseRole(args[0])
	if err != nil {
		return nil, err
	}
	addr, err := parseAddress(args[1])
	return &tx.RoleTx{Role: role, Account: addr}, err
}

func newTxCmd(use, short string, minArgs int, tp tx.TreasuryTxType, payload func(args []string) (any, error)) *cobra.Command {
	return &cobra.Command{
		Use:   use,
		Short: short,
		Args:  cobra.MinimumNArgs(minArgs),
		RunE: func(cmd *cobra.Command, args []string) error {
			p, err := payload(args)
			if err != nil {
				return err
			}
			return sendTx(cmd.Context(), tp, p)
		},
	}
}

func sendTx(ctx context.Context, tp tx.TreasuryTxType, payload any) error {
	if ctx == nil {
		ctx = context.Background()
	}
	cli, err := http.New(txArgs.Url, "/websocket")
	if err != nil {
		return fmt.Errorf("new client err:%w", err)
	}
	gres, err := cli.Genesis(ctx)
	if err != nil {
		return fmt.Errorf("get chain genesis err:%w", err)
	}
	chainId := gres.Genesis.ChainID
	key, err := crypto.LoadKey(txArgs.Skey)
	if err != nil {
		return err
	}
	from := key.Address()
	var nonce uint64
	if txArgs.Nonce >= 0 {
		nonce = uint64(txArgs.Nonce)
	} else {
		var act state.Account
		if err = abciQuery(ctx, cli, app.PathAccount, app.QueryRequest{Account: from}, &act); err != nil {
			return err
		}
		nonce = act.Nonce
	}
	btx := tx.NewTx(tp, from, nonce, payload)
	if err = btx.Sign(key.PrivateKey(), chainId); err != nil {
		return fmt.Errorf("sign tx err:%w", err)
	}
	dat, err := tx.MarshalTreasuryTx(btx)
	if err != nil {
		return err
	}
	if txArgs.NoSend {
		fmt.Println(string(dat))
		return nil
	}
	res, err := cli.BroadcastTxSync(ctx, dat)
	if err != nil {
		return fmt.Errorf("broadcast tx err:%w", err)
	}
	out, _ := json.Marshal(res)
	fmt.Println(string(out))
	return nil
}
