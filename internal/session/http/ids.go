package http

import (
	"net/http"

	"github.com/aussiebroadwan/sessiond/internal/session/service"
	"github.com/aussiebroadwan/sessiond/pkg/authsdk"
	"github.com/aussiebroadwan/sessiond/pkg/httpx"
	"github.com/aussiebroadwan/sessiond/pkg/slogx"
	"github.com/aussiebroadwan/sessiond/pkg/snowflake"
)

// IDsHandler mints and decodes snowflake ids.
type IDsHandler struct {
	IDs     IDMinter
	Metrics MetricsSink
}

func toIDResponse(id snowflake.ID) authsdk.IDResponse {
	parts := snowflake.Decode(id)
	return authsdk.IDResponse{
		ID:        id.String(),
		Timestamp: parts.Timestamp.UTC(),
		WorkerID:  parts.WorkerID,
		Sequence:  parts.Sequence,
	}
}

// HandleGenerate handles GET /v1/ids
//
//	@Summary		Mint id
//	@Description	Returns a new 64-bit snowflake id as a decimal string, with its decoded parts.
//	@Tags			IDs
//	@Produce		json
//	@Success		200	{object}	authsdk.IDResponse
//	@Failure		503	{object}	authsdk.APIError	"clock_regression"
//	@Router			/v1/ids [get].
func (h *IDsHandler) HandleGenerate(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	id, err := h.IDs.Generate()
	if err != nil {
		writeDomainError(ctx, w, service.IDError(err))
		return
	}
	if h.Metrics != nil {
		h.Metrics.IDGenerated()
	}

	httpx.NoCache(w)
	httpx.WriteJSON(w, http.StatusOK, toIDResponse(id))
}

// HandleDecode handles GET /v1/ids/{id}
//
//	@Summary		Decode id
//	@Description	Splits a snowflake id into timestamp, worker id and sequence.
//	@Tags			IDs
//	@Produce		json
//	@Param			id	path		string	true	"Decimal snowflake id"
//	@Success		200	{object}	authsdk.IDResponse
//	@Failure		400	{object}	authsdk.APIError	"invalid_request"
//	@Router			/v1/ids/{id} [get].
func (h *IDsHandler) HandleDecode(w http.ResponseWriter, r *http.Request) {
	id, err := snowflake.ParseID(r.PathValue("id"))
	if err != nil {
		slogx.FromContext(r.Context()).Debug("bad id", "err", err)
		authsdk.ErrInvalidRequest.WithDescription("id must be a decimal unsigned 64-bit integer").WriteError(w)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, toIDResponse(id))
}
