package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/turtacn/MolScore/internal/application/scoring"
	"github.com/turtacn/MolScore/internal/domain/likelihood"
	"github.com/turtacn/MolScore/pkg/types/molecule"
)

// ModelHandler serves model lifecycle endpoints: training, inspection, and
// corpus growth.
type ModelHandler struct {
	svc scoring.Service
}

func NewModelHandler(svc scoring.Service) *ModelHandler {
	return &ModelHandler{svc: svc}
}

type trainRequest struct {
	Radius            int     `json:"radius"`
	PseudoCount       float64 `json:"pseudo_count"`
	EstimatedKeyspace float64 `json:"estimated_keyspace"`
	Alpha             float64 `json:"alpha"`
}

type addCorpusRequest struct {
	SMILES []string `json:"smiles" binding:"required,min=1"`
}

type addCorpusResponse struct {
	Added int64 `json:"added"`
}

// Train handles POST /api/v1/models/:kind/train.  An empty body trains with
// the default parameters.
func (h *ModelHandler) Train(c *gin.Context) {
	kind, err := likelihood.ParseModelKind(c.Param("kind"))
	if err != nil {
		respondError(c, err)
		return
	}

	input := &scoring.TrainInput{Kind: kind}
	var req trainRequest
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			respondBadRequest(c, err)
			return
		}
		params := likelihood.DefaultParams()
		if req.Radius != 0 {
			params.Radius = req.Radius
		}
		if req.PseudoCount != 0 {
			params.PseudoCount = req.PseudoCount
		}
		if req.EstimatedKeyspace != 0 {
			params.EstimatedKeyspace = req.EstimatedKeyspace
		}
		if req.Alpha != 0 {
			params.Alpha = req.Alpha
		}
		input.Params = params
	}

	result, err := h.svc.Train(c.Request.Context(), input)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

// Info handles GET /api/v1/models/:kind.
func (h *ModelHandler) Info(c *gin.Context) {
	kind, err := likelihood.ParseModelKind(c.Param("kind"))
	if err != nil {
		respondError(c, err)
		return
	}

	info, err := h.svc.ModelInfo(c.Request.Context(), kind)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, info)
}

// AddCorpus handles POST /api/v1/corpus.
func (h *ModelHandler) AddCorpus(c *gin.Context) {
	var req addCorpusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBadRequest(c, err)
		return
	}

	added, err := h.svc.AddCorpus(c.Request.Context(), molecule.FromSMILES(req.SMILES))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, addCorpusResponse{Added: added})
}
