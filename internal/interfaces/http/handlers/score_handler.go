package handlers

import (
	"math"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/turtacn/MolScore/internal/application/scoring"
	"github.com/turtacn/MolScore/internal/domain/likelihood"
	"github.com/turtacn/MolScore/pkg/errors"
	"github.com/turtacn/MolScore/pkg/types/molecule"
)

// maxBatchSize caps one batch request; larger corpora go through the CLI.
const maxBatchSize = 10000

// ScoreHandler serves the scoring endpoints.
type ScoreHandler struct {
	svc scoring.Service
}

func NewScoreHandler(svc scoring.Service) *ScoreHandler {
	return &ScoreHandler{svc: svc}
}

type scoreRequest struct {
	ModelKind string `json:"model_kind" binding:"required"`
	SMILES    string `json:"smiles" binding:"required"`
}

type scoreBatchRequest struct {
	ModelKind string   `json:"model_kind" binding:"required"`
	SMILES    []string `json:"smiles" binding:"required,min=1"`
}

// scoreBatchResponse carries per-item scores; NaN is not representable in
// JSON, so failed items are null with an explanation in failures.
type scoreBatchResponse struct {
	Scores      []*float64     `json:"scores"`
	Failures    map[int]string `json:"failures,omitempty"`
	ModelDigest string         `json:"model_digest"`
}

// Score handles POST /api/v1/score.
func (h *ScoreHandler) Score(c *gin.Context) {
	var req scoreRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBadRequest(c, err)
		return
	}

	kind, err := likelihood.ParseModelKind(req.ModelKind)
	if err != nil {
		respondError(c, err)
		return
	}

	result, err := h.svc.Score(c.Request.Context(), kind, molecule.Molecule{SMILES: req.SMILES})
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

// ScoreBatch handles POST /api/v1/score/batch.
func (h *ScoreHandler) ScoreBatch(c *gin.Context) {
	var req scoreBatchRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBadRequest(c, err)
		return
	}
	if len(req.SMILES) > maxBatchSize {
		respondBadRequest(c, errors.Newf(errors.ErrCodeBadRequest,
			"batch of %d exceeds the limit of %d", len(req.SMILES), maxBatchSize))
		return
	}

	kind, err := likelihood.ParseModelKind(req.ModelKind)
	if err != nil {
		respondError(c, err)
		return
	}

	result, err := h.svc.ScoreBatch(c.Request.Context(), kind, molecule.FromSMILES(req.SMILES))
	if err != nil {
		respondError(c, err)
		return
	}

	resp := scoreBatchResponse{
		Scores:      make([]*float64, len(result.Scores)),
		Failures:    result.Failures,
		ModelDigest: result.ModelDigest,
	}
	for i := range result.Scores {
		if !math.IsNaN(result.Scores[i]) {
			score := result.Scores[i]
			resp.Scores[i] = &score
		}
	}
	c.JSON(http.StatusOK, resp)
}
