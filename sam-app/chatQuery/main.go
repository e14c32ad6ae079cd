package main

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"log/slog"
	"net/http"
	"strings"

	"github.com/aws/aws-lambda-go/events"
	"github.com/aws/aws-lambda-go/lambda"

	"tds-relay/config"
	"tds-relay/service/query"
	"tds-relay/service/static"
)

var corsHeaders = map[string]string{
	"Access-Control-Allow-Origin":      "*",
	"Access-Control-Allow-Methods":     "GET,POST,PUT,PATCH,DELETE,HEAD,OPTIONS",
	"Access-Control-Allow-Headers":     "*",
	"Access-Control-Allow-Credentials": "true",
}

type lambdaHandler struct {
	relay         *query.Relay
	logger        *slog.Logger
	serveFrontend bool
}

func (l *lambdaHandler) handler(ctx context.Context, request events.APIGatewayProxyRequest) (events.APIGatewayProxyResponse, error) {
	l.logger.InfoContext(ctx, "Handler started", slog.String("method", request.HTTPMethod), slog.String("path", request.Path), slog.String("request_id", request.RequestContext.RequestID))

	if request.HTTPMethod == http.MethodOptions {
		return respond(http.StatusNoContent, "", ""), nil
	}

	switch route(request) {
	case http.MethodGet + " /":
		if l.serveFrontend {
			return respond(http.StatusOK, "text/html; charset=utf-8", string(static.IndexHTML)), nil
		}
		return l.writeJSON(ctx, http.StatusOK, map[string]string{"message": "TDS virtual assistant relay is running", "query": "POST /api/"}), nil
	case http.MethodPost + " /api":
		return l.query(ctx, request), nil
	case http.MethodGet + " /api/test":
		return l.writeJSON(ctx, http.StatusOK, map[string]string{"response": "Test Done"}), nil
	default:
		l.logger.WarnContext(ctx, "no route", slog.String("method", request.HTTPMethod), slog.String("path", request.Path))
		return l.writeJSON(ctx, http.StatusNotFound, query.ErrorBody{Detail: "Not Found"}), nil
	}
}

// route is the method and path of a request with any trailing slash removed, so "/api/" and "/api"
// are the same endpoint.
func route(request events.APIGatewayProxyRequest) string {
	path := strings.TrimRight(request.Path, "/")
	if path == "" {
		path = "/"
	}
	return request.HTTPMethod + " " + path
}

func (l *lambdaHandler) query(ctx context.Context, request events.APIGatewayProxyRequest) events.APIGatewayProxyResponse {
	body := []byte(request.Body)
	if request.IsBase64Encoded {
		decoded, err := base64.StdEncoding.DecodeString(request.Body)
		if err != nil {
			return l.fail(ctx, "failed to decode request body", &query.ValidationError{Err: err})
		}
		body = decoded
	}

	q, err := query.ParseRequest(body)
	if err != nil {
		return l.fail(ctx, "failed to parse request body", err)
	}

	response, err := l.relay.Answer(ctx, q)
	if err != nil {
		return l.fail(ctx, "failed to answer query", err)
	}

	return l.writeJSON(ctx, http.StatusOK, response)
}

func (l *lambdaHandler) fail(ctx context.Context, msg string, err error) events.APIGatewayProxyResponse {
	l.logger.ErrorContext(ctx, msg, slog.Any("error", err), slog.String("kind", query.KindOf(err).String()))
	return l.writeJSON(ctx, query.StatusCode(err), query.Failure(err))
}

func (l *lambdaHandler) writeJSON(ctx context.Context, status int, v any) events.APIGatewayProxyResponse {
	responseBytes, err := json.Marshal(v)
	if err != nil {
		l.logger.ErrorContext(ctx, "serialize response", slog.Any("error", err))
		return respond(http.StatusInternalServerError, "application/json", `{"detail":"something went wrong building the response"}`)
	}
	return respond(status, "application/json", string(responseBytes))
}

func respond(status int, contentType string, body string) events.APIGatewayProxyResponse {
	headers := make(map[string]string, len(corsHeaders)+1)
	for k, v := range corsHeaders {
		headers[k] = v
	}
	if contentType != "" {
		headers["Content-Type"] = contentType
	}
	return events.APIGatewayProxyResponse{
		StatusCode: status,
		Headers:    headers,
		Body:       body,
	}
}

func main() {
	ctx := context.Background()
	logger := slog.Default()

	cfg, err := config.FromEnv(ctx, config.DefaultSecrets())
	if err != nil {
		panic(err)
	}

	handler := lambdaHandler{
		relay:         query.NewRelay(cfg.NewAssistant(), logger),
		logger:        logger,
		serveFrontend: cfg.ServeFrontend,
	}

	lambda.Start(handler.handler)
}
