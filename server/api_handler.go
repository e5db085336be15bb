package server

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/dlc-link/dlc-observer/core"
	"github.com/dlc-link/dlc-observer/core/oracle"
	"github.com/dlc-link/dlc-observer/types"
	"github.com/dlc-link/dlc-observer/utils"
	"github.com/gin-gonic/gin"
	"github.com/sisu-network/lib/log"
)

var RequestTimeout = 60 * time.Second

type ApiHandler struct {
	attestor   oracle.Attestor
	registry   core.VaultRegistry
	reconciler core.Reconciler
}

func NewApi(attestor oracle.Attestor, registry core.VaultRegistry, reconciler core.Reconciler) *ApiHandler {
	return &ApiHandler{
		attestor:   attestor,
		registry:   registry,
		reconciler: reconciler,
	}
}

func abort(c *gin.Context, err error) {
	status := http.StatusInternalServerError
	var unavailable *types.OracleUnavailableError
	switch {
	case errors.Is(err, types.ErrVaultNotFound):
		status = http.StatusNotFound
	case errors.As(err, &unavailable):
		status = http.StatusBadGateway
	}

	log.Warnf("Request %s failed, err = %v", c.Request.URL.Path, err)
	c.AbortWithStatusJSON(status, gin.H{"error": err.Error()})
}

func requestCtx(c *gin.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(c.Request.Context(), RequestTimeout)
}

func (api *ApiHandler) Health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

func (api *ApiHandler) GetEvent(c *gin.Context) {
	ctx, cancel := requestCtx(c)
	defer cancel()

	event, err := api.attestor.GetEvent(ctx, c.Param("uuid"))
	if err != nil {
		abort(c, err)
		return
	}
	if event == nil {
		abort(c, types.ErrVaultNotFound)
		return
	}

	c.Data(http.StatusOK, gin.MIMEJSON, event)
}

func (api *ApiHandler) GetEvents(c *gin.Context) {
	ctx, cancel := requestCtx(c)
	defer cancel()

	events, err := api.attestor.GetAllEvents(ctx)
	if err != nil {
		abort(c, err)
		return
	}

	c.JSON(http.StatusOK, events)
}

func (api *ApiHandler) GetPublicKey(c *gin.Context) {
	ctx, cancel := requestCtx(c)
	defer cancel()

	key, err := api.attestor.GetPublicKey(ctx)
	if err != nil {
		abort(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"public_key": key})
}

type vaultResponse struct {
	UUID            string    `json:"uuid"`
	Chain           string    `json:"chain"`
	ContractAddress string    `json:"contract_address"`
	Outcome         string    `json:"outcome,omitempty"`
	FundedRequested bool      `json:"funded_requested"`
	Funded          bool      `json:"funded"`
	UpdatedAt       time.Time `json:"updated_at"`
}

func (api *ApiHandler) GetVaults(c *gin.Context) {
	vaults := api.registry.All()
	ret := make([]*vaultResponse, 0, len(vaults))
	for _, v := range vaults {
		resp := &vaultResponse{
			UUID:            v.UUID,
			Chain:           v.Chain,
			ContractAddress: v.ContractAddress,
			FundedRequested: v.FundedRequested,
			Funded:          v.Funded,
			UpdatedAt:       v.UpdatedAt,
		}
		if v.Outcome != nil {
			resp.Outcome = v.Outcome.String()
		}
		ret = append(ret, resp)
	}

	c.JSON(http.StatusOK, ret)
}

func (api *ApiHandler) ForceCheck(c *gin.Context) {
	ctx, cancel := requestCtx(c)
	defer cancel()

	result, err := api.reconciler.ForceCheck(ctx, c.Param("uuid"))
	if err != nil {
		abort(c, err)
		return
	}

	c.JSON(http.StatusOK, result)
}

func (api *ApiHandler) CreateAnnouncement(c *gin.Context) {
	ctx, cancel := requestCtx(c)
	defer cancel()

	maturation := c.Query("maturation")
	if maturation == "" {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "maturation is required"})
		return
	}

	announcement, err := api.attestor.CreateAnnouncement(ctx, c.Param("uuid"), maturation)
	if err != nil {
		abort(c, err)
		return
	}

	c.JSON(http.StatusOK, announcement)
}

func (api *ApiHandler) CreateAttestation(c *gin.Context) {
	ctx, cancel := requestCtx(c)
	defer cancel()

	outcome, err := utils.ParseOutcome(c.Param("outcome"))
	if err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	attestation, err := api.attestor.Attest(ctx, c.Param("uuid"), outcome)
	if err != nil {
		abort(c, err)
		return
	}

	c.JSON(http.StatusOK, attestation)
}
