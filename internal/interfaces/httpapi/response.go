package httpapi

import (
	"context"

	sonic "github.com/bytedance/sonic"
	"github.com/valyala/fasthttp"
)

const (
	googleAPIVersion = "2.0"
	errorDomain      = "tippebot"
)

type googleResponseEnvelope struct {
	APIVersion string           `json:"apiVersion"`
	Data       any              `json:"data,omitempty"`
	Error      *googleErrorBody `json:"error,omitempty"`
}

type googleErrorBody struct {
	Code    int               `json:"code"`
	Message string            `json:"message"`
	Status  string            `json:"status"`
	Errors  []googleErrorItem `json:"errors,omitempty"`
}

type googleErrorItem struct {
	Domain  string `json:"domain"`
	Reason  string `json:"reason"`
	Message string `json:"message"`
}

func writeJSON(ctx context.Context, rc *fasthttp.RequestCtx, status int, payload any) {
	_, span := startSpan(ctx, "httpapi.writeJSON")
	defer span.End()

	body, err := sonic.Marshal(payload)
	if err != nil {
		rc.SetStatusCode(fasthttp.StatusInternalServerError)
		return
	}
	rc.SetContentType("application/json")
	rc.SetStatusCode(status)
	rc.SetBody(body)
}

func writeSuccess(ctx context.Context, rc *fasthttp.RequestCtx, status int, data any) {
	writeJSON(ctx, rc, status, googleResponseEnvelope{
		APIVersion: googleAPIVersion,
		Data:       data,
	})
}

func writeError(ctx context.Context, rc *fasthttp.RequestCtx, status int, reason, message string) {
	writeJSON(ctx, rc, status, googleResponseEnvelope{
		APIVersion: googleAPIVersion,
		Error: &googleErrorBody{
			Code:    status,
			Message: message,
			Status:  reason,
			Errors: []googleErrorItem{{
				Domain:  errorDomain,
				Reason:  reason,
				Message: message,
			}},
		},
	})
}
