package app

import (
	"context"
	"encoding/json"
	"strings"

	"github.com/calehh/treasury-app/state"
	"github.com/calehh/treasury-app/types"
	abcitypes "github.com/cometbft/cometbft/abci/types"
	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"
)

const (
	PathBalance   = "/balance/"
	PathProposal  = "/proposal/"
	PathConfirmed = "/confirmed/"
	PathManagers  = "/managers/"
	PathRemaining = "/remaining/"
	PathAccount   = "/account/"
	PathRoles     = "/roles/"
	PathConfig    = "/config/"
)

const (
	CodeQueryNotFound   uint32 = 404
	CodeQueryBadRequest uint32 = 400
)

// QueryRequest is the JSON body of every query that takes arguments.
type QueryRequest struct {
	Proposal uint64         `json:"proposal"`
	Account  common.Address `json:"account"`
}

type BalanceResponse struct {
	Balance *uint256.Int `json:"balance"`
}

type ProposalResponse struct {
	Proposal *types.Proposal `json:"proposal"`
	Status   string          `json:"status"`
}

type ConfirmedResponse struct {
	Confirmed bool `json:"confirmed"`
}

type ManagersResponse struct {
	Managers []common.Address `json:"managers"`
	Required uint64           `json:"required"`
	Min      uint64           `json:"min"`
}

type RemainingResponse struct {
	Remaining *uint256.Int `json:"remaining"`
	Limit     *uint256.Int `json:"limit"`
}

type RolesResponse struct {
	Account common.Address `json:"account"`
	Roles   []string       `json:"roles"`
}

type ConfigResponse struct {
	ChainId               string       `json:"chainId"`
	Paused                bool         `json:"paused"`
	RequiredConfirmations uint64       `json:"requiredConfirmations"`
	DailyLimit            *uint256.Int `json:"dailyLimit"`
	MaxDailyLimit         *uint256.Int `json:"maxDailyLimit"`
	ProposalCount         uint64       `json:"proposalCount"`
	ProposalExpiryBlocks  uint64       `json:"proposalExpiryBlocks"`
	WindowBlocks          uint64       `json:"windowBlocks"`
}

type Querier interface {
	Query(ctx context.Context, req *abcitypes.RequestQuery) (res *abcitypes.ResponseQuery, err error)
}

func (app *TreasuryApp) Query(ctx context.Context, req *abcitypes.RequestQuery) (res *abcitypes.ResponseQuery, err error) {
	path := req.Path
	if !strings.HasSuffix(path, "/") {
		path += "/"
	}
	q, ok := app.queriers[path]
	if !ok {
		res = &abcitypes.ResponseQuery{}
		res.Code = CodeQueryNotFound
		return
	}
	res, err = q.Query(ctx, req)
	return
}

func parseQueryRequest(req *abcitypes.RequestQuery) (qr QueryRequest, err error) {
	if len(req.Data) == 0 {
		return
	}
	err = json.Unmarshal(req.Data, &qr)
	return
}

func respond(st *state.State, v any) (res *abcitypes.ResponseQuery, err error) {
	res = &abcitypes.ResponseQuery{Height: int64(st.Height())}
	res.Value, err = json.Marshal(v)
	if err != nil {
		res.Code = state.CodeInternal
		res.Log = err.Error()
		err = nil
	}
	return
}

func queryFailed(code uint32, err error) *abcitypes.ResponseQuery {
	return &abcitypes.ResponseQuery{Code: code, Log: err.Error()}
}

type balanceQuerier struct {
	db *state.StateDB
}

func (q *balanceQuerier) Query(ctx context.Context, req *abcitypes.RequestQuery) (*abcitypes.ResponseQuery, error) {
	st := q.db.State()
	return respond(st, BalanceResponse{Balance: st.Balance()})
}

type proposalQuerier struct {
	db *state.StateDB
}

func (q *proposalQuerier) Query(ctx context.Context, req *abcitypes.RequestQuery) (*abcitypes.ResponseQuery, error) {
	qr, err := parseQueryRequest(req)
	if err != nil {
		return queryFailed(CodeQueryBadRequest, err), nil
	}
	st := q.db.State()
	p, err := st.Proposal(qr.Proposal)
	if err != nil {
		return queryFailed(state.Code(err), err), nil
	}
	return respond(st, ProposalResponse{
		Proposal: p,
		Status:   p.Status(st.Height(), st.RequiredConfirmations()).String(),
	})
}

type confirmedQuerier struct {
	db *state.StateDB
}

func (q *confirmedQuerier) Query(ctx context.Context, req *abcitypes.RequestQuery) (*abcitypes.ResponseQuery, error) {
	qr, err := parseQueryRequest(req)
	if err != nil {
		return queryFailed(CodeQueryBadRequest, err), nil
	}
	st := q.db.State()
	ok, err := st.HasConfirmed(qr.Proposal, qr.Account)
	if err != nil {
		return queryFailed(state.Code(err), err), nil
	}
	return respond(st, ConfirmedResponse{Confirmed: ok})
}

type managersQuerier struct {
	db *state.StateDB
}

func (q *managersQuerier) Query(ctx context.Context, req *abcitypes.RequestQuery) (*abcitypes.ResponseQuery, error) {
	st := q.db.State()
	return respond(st, ManagersResponse{
		Managers: st.Managers(),
		Required: st.RequiredConfirmations(),
		Min:      types.MinManagers,
	})
}

type remainingQuerier struct {
	db *state.StateDB
}

func (q *remainingQuerier) Query(ctx context.Context, req *abcitypes.RequestQuery) (*abcitypes.ResponseQuery, error) {
	st := q.db.State()
	return respond(st, RemainingResponse{
		Remaining: st.RemainingDailyWithdrawal(),
		Limit:     st.DailyLimit(),
	})
}

type accountQuerier struct {
	db *state.StateDB
}

func (q *accountQuerier) Query(ctx context.Context, req *abcitypes.RequestQuery) (*abcitypes.ResponseQuery, error) {
	qr, err := parseQueryRequest(req)
	if err != nil {
		return queryFailed(CodeQueryBadRequest, err), nil
	}
	a, height, err := q.db.GetAccount(qr.Account)
	if err != nil {
		return queryFailed(state.CodeInternal, err), nil
	}
	res := &abcitypes.ResponseQuery{Height: int64(height)}
	res.Value, _ = a.MarshalJSON()
	return res, nil
}

type rolesQuerier struct {
	db *state.StateDB
}

func (q *rolesQuerier) Query(ctx context.Context, req *abcitypes.RequestQuery) (*abcitypes.ResponseQuery, error) {
	qr, err := parseQueryRequest(req)
	if err != nil {
		return queryFailed(CodeQueryBadRequest, err), nil
	}
	st := q.db.State()
	roles := st.RolesOf(qr.Account)
	names := make([]string, 0, len(roles))
	for _, r := range roles {
		names = append(names, r.String())
	}
	return respond(st, RolesResponse{Account: qr.Account, Roles: names})
}

type configQuerier struct {
	db *state.StateDB
}

func (q *configQuerier) Query(ctx context.Context, req *abcitypes.RequestQuery) (*abcitypes.ResponseQuery, error) {
	st := q.db.State()
	return respond(st, ConfigResponse{
		ChainId:               st.ChainId(),
		Paused:                st.Paused(),
		RequiredConfirmations: st.RequiredConfirmations(),
		DailyLimit:            st.DailyLimit(),
		MaxDailyLimit:         types.MaxDailyLimit,
		ProposalCount:         st.ProposalCount(),
		ProposalExpiryBlocks:  types.ProposalExpiryBlocks,
		WindowBlocks:          types.WithdrawalWindowBlocks,
	})
}
