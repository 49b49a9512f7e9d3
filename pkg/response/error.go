package response

import (
	"encoding/json"
	"errors"
	"net/http"

	pkgErrors "github.com/vogiaan1904/ticketbottle-reservation/pkg/errors"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

type Resp struct {
	ErrorCode int    `json:"error_code"`
	Message   string `json:"message"`
	Data      any    `json:"data,omitempty"`
	Errors    any    `json:"errors,omitempty"`
}

func ParseHTTPError(err error) (int, Resp) {
	var parsedErr *pkgErrors.HTTPError
	if errors.As(err, &parsedErr) {
		statusCode := parsedErr.StatusCode
		if statusCode == 0 {
			statusCode = http.StatusBadRequest
		}

		return statusCode, Resp{
			ErrorCode: parsedErr.Code,
			Message:   parsedErr.Message,
		}
	}

	return http.StatusInternalServerError, Resp{
		ErrorCode: 500,
		Message:   "Internal server error",
	}
}

func ParseGRPCError(err error) error {
	var parsedErr *pkgErrors.GRPCError
	if errors.As(err, &parsedErr) {
		grpcCode := parsedErr.GrpcCode
		if grpcCode == codes.OK {
			grpcCode = codes.InvalidArgument
		}
		return status.Error(grpcCode, parsedErr.Error())
	}

	return status.Error(codes.Internal, "Internal server error")
}

// JSON writes data wrapped in a success Resp.
func JSON(w http.ResponseWriter, statusCode int, data any) {
	write(w, statusCode, Resp{Message: "Success", Data: data})
}

// Error writes err as a Resp, using ParseHTTPError for the status.
func Error(w http.ResponseWriter, err error) {
	statusCode, body := ParseHTTPError(err)
	write(w, statusCode, body)
}

// ValidationError writes a 400 with the validator's details.
func ValidationError(w http.ResponseWriter, details any) {
	write(w, http.StatusBadRequest, Resp{
		ErrorCode: http.StatusBadRequest,
		Message:   "Validation failed",
		Errors:    details,
	})
}

func write(w http.ResponseWriter, statusCode int, body Resp) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	_ = json.NewEncoder(w).Encode(body)
}
