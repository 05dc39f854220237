package indexer

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/jinzhu/gorm"
)

const defaultPageSize = 20

type Service struct {
	engine     *gin.Engine
	indexer    *ChainIndexer
	listenAddr string
	srv        *http.Server
}

// NewService serves the indexed data. A positive rps limits each client ip.
func NewService(listenAddr string, indexer *ChainIndexer, rps float64, burst int) *Service {
	r := gin.New()
	r.Use(gin.Recovery())
	if rps > 0 {
		r.Use(newClientLimiter(rps, burst).middleware())
	}
	s := &Service{
		engine:     r,
		indexer:    indexer,
		listenAddr: listenAddr,
	}
	s.engine.POST("/getProposals", s.handleGetProposals)
	s.engine.POST("/getConfirmations", s.handleGetConfirmations)
	s.engine.POST("/getWithdrawals", s.handleGetWithdrawals)
	s.engine.POST("/getDeposits", s.handleGetDeposits)
	s.engine.POST("/getAdminActions", s.handleGetAdminActions)
	return s
}

func (s *Service) Handler() http.Handler {
	return s.engine
}

func (s *Service) Start() error {
	s.srv = &http.Server{Addr: s.listenAddr, Handler: s.engine}
	err := s.srv.ListenAndServe()
	if errors.Is(err, http.ErrServerClosed) {
		return nil
	}
	return err
}

func (s *Service) Stop() error {
	if s.srv == nil {
		return nil
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return s.srv.Shutdown(ctx)
}

type PageReq struct {
	Page     int `json:"page"`
	PageSize int `json:"pageSize"`
}

func (p *PageReq) normalize() {
	if p.Page < 0 {
		p.Page = 0
	}
	if p.PageSize <= 0 || p.PageSize > 100 {
		p.PageSize = defaultPageSize
	}
}

type ProposalInfo struct {
	Proposal      Proposal       `json:"proposal"`
	Confirmations []Confirmation `json:"confirmations"`
}

type GetProposalsReq struct {
	PageReq
	ProposalId *uint64 `json:"proposalId"`
	Proposer   string  `json:"proposer"`
	Status     string  `json:"status"`
}

type GetProposalResponse struct {
	Proposals []ProposalInfo `json:"proposals"`
	Total     uint64         `json:"total"`
}

func (s *Service) handleGetProposals(c *gin.Context) {
	var response GetProposalResponse
	response.Proposals = make([]ProposalInfo, 0)
	var requestData GetProposalsReq
	if err := c.ShouldBindJSON(&requestData); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	requestData.normalize()

	if requestData.ProposalId != nil {
		proposalInfo, err := s.getProposalInfoById(*requestData.ProposalId)
		if errors.Is(err, gorm.ErrRecordNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
			return
		}
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}
		response.Proposals = append(response.Proposals, proposalInfo)
		response.Total = 1
		c.JSON(http.StatusOK, response)
		return
	}
	proposals, total, err := s.indexer.getProposals(requestData.Status, requestData.Proposer, requestData.Page, requestData.PageSize)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	response.Total = total
	for _, proposal := range proposals {
		confirmations, err := s.indexer.getConfirmationsByProposal(proposal.ProposalIndex)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}
		response.Proposals = append(response.Proposals, ProposalInfo{Proposal: proposal, Confirmations: confirmations})
	}
	c.JSON(http.StatusOK, response)
}

func (s *Service) getProposalInfoById(proposalId uint64) (ProposalInfo, error) {
	proposal, err := s.indexer.getProposalById(proposalId)
	if err != nil {
		return ProposalInfo{}, err
	}
	confirmations, err := s.indexer.getConfirmationsByProposal(proposalId)
	if err != nil {
		return ProposalInfo{}, err
	}
	return ProposalInfo{Proposal: proposal, Confirmations: confirmations}, nil
}

type GetConfirmationsReq struct {
	ProposalId uint64 `json:"proposalId"`
}

type GetConfirmationsResponse struct {
	Confirmations []Confirmation `json:"confirmations"`
}

func (s *Service) handleGetConfirmations(c *gin.Context) {
	var requestData GetConfirmationsReq
	if err := c.ShouldBindJSON(&requestData); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	confirmations, err := s.indexer.getConfirmationsByProposal(requestData.ProposalId)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	if confirmations == nil {
		confirmations = make([]Confirmation, 0)
	}
	c.JSON(http.StatusOK, GetConfirmationsResponse{Confirmations: confirmations})
}

type GetWithdrawalsReq struct {
	PageReq
	Recipient string `json:"recipient"`
}

type GetWithdrawalsResponse struct {
	Withdrawals []Withdrawal `json:"withdrawals"`
	Total       uint64       `json:"total"`
}

func (s *Service) handleGetWithdrawals(c *gin.Context) {
	var requestData GetWithdrawalsReq
	if err := c.ShouldBindJSON(&requestData); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	requestData.normalize()
	withdrawals, total, err := s.indexer.getWithdrawals(requestData.Recipient, requestData.Page, requestData.PageSize)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	if withdrawals == nil {
		withdrawals = make([]Withdrawal, 0)
	}
	c.JSON(http.StatusOK, GetWithdrawalsResponse{Withdrawals: withdrawals, Total: total})
}

type GetDepositsReq struct {
	PageReq
	Depositor string `json:"depositor"`
}

type GetDepositsResponse struct {
	Deposits []Deposit `json:"deposits"`
	Total    uint64    `json:"total"`
}

func (s *Service) handleGetDeposits(c *gin.Context) {
	var requestData GetDepositsReq
	if err := c.ShouldBindJSON(&requestData); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	requestData.normalize()
	deposits, total, err := s.indexer.getDeposits(requestData.Depositor, requestData.Page, requestData.PageSize)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	if deposits == nil {
		deposits = make([]Deposit, 0)
	}
	c.JSON(http.StatusOK, GetDepositsResponse{Deposits: deposits, Total: total})
}

type GetAdminActionsResponse struct {
	Actions []AdminAction `json:"actions"`
	Total   uint64        `json:"total"`
}

func (s *Service) handleGetAdminActions(c *gin.Context) {
	var requestData PageReq
	if err := c.ShouldBindJSON(&requestData); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	requestData.normalize()
	actions, total, err := s.indexer.getAdminActions(requestData.Page, requestData.PageSize)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	if actions == nil {
		actions = make([]AdminAction, 0)
	}
	c.JSON(http.StatusOK, GetAdminActionsResponse{Actions: actions, Total: total})
}
