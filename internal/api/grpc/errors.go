package grpc

import (
	"errors"

	"google.golang.org/genproto/googleapis/rpc/errdetails"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/protoadapt"

	"sorbet-validators/internal/converter"
	"sorbet-validators/internal/dryrun"
	"sorbet-validators/internal/expr"
	"sorbet-validators/internal/ir"
	"sorbet-validators/internal/repository"
	svc "sorbet-validators/internal/service"
)

// errorDomain - домен для google.rpc.ErrorInfo
const errorDomain = "sorbet-validators"

// Причины ошибок в google.rpc.ErrorInfo
const (
	ReasonCompilationNotFound = "COMPILATION_NOT_FOUND"
	ReasonFileNotFound        = "FILE_NOT_FOUND"
	ReasonValidatorNotFound   = "VALIDATOR_NOT_FOUND"
	ReasonRuntimeError        = "VALIDATOR_RUNTIME_ERROR"
	ReasonInternal            = "INTERNAL_ERROR"
)

// handleError конвертирует внутренние ошибки в gRPC статусы с детализацией.
//
// Ошибки IR и запроса становятся InvalidArgument с google.rpc.BadRequest,
// отсутствующие объекты - NotFound с google.rpc.ErrorInfo.
func handleError(err error) error {
	if err == nil {
		return nil
	}

	var invalid *ir.InvalidError
	switch {
	case errors.As(err, &invalid):
		violations := make([]*errdetails.BadRequest_FieldViolation, 0, len(invalid.Problems))
		for _, p := range invalid.Problems {
			violations = append(violations, &errdetails.BadRequest_FieldViolation{
				Field:       "ir." + p.Path,
				Description: p.Description,
			})
		}
		return withDetails(codes.InvalidArgument, err.Error(), &errdetails.BadRequest{FieldViolations: violations})

	case errors.Is(err, svc.ErrBadIR), errors.Is(err, svc.ErrEmptyIR):
		return badRequest(converter.FieldIR, err)

	case errors.Is(err, svc.ErrEmptyID):
		return badRequest(converter.FieldID, err)

	case errors.Is(err, converter.ErrInvalidRequest):
		return badRequest("request", err)

	case errors.Is(err, dryrun.ErrInvalidInput):
		return badRequest(converter.FieldInput, err)

	case errors.Is(err, repository.ErrCompilationNotFound):
		return notFound(ReasonCompilationNotFound, err)

	case errors.Is(err, svc.ErrFileNotFound):
		return notFound(ReasonFileNotFound, err)

	case errors.Is(err, dryrun.ErrUnknownValidator):
		return notFound(ReasonValidatorNotFound, err)

	case errors.Is(err, expr.ErrRuntime):
		return withDetails(codes.FailedPrecondition, err.Error(), &errdetails.ErrorInfo{
			Reason: ReasonRuntimeError,
			Domain: errorDomain,
		})
	}

	return withDetails(codes.Internal, "internal error", &errdetails.ErrorInfo{
		Reason:   ReasonInternal,
		Domain:   errorDomain,
		Metadata: map[string]string{"error": err.Error()},
	})
}

func badRequest(field string, err error) error {
	return withDetails(codes.InvalidArgument, err.Error(), &errdetails.BadRequest{
		FieldViolations: []*errdetails.BadRequest_FieldViolation{{Field: field, Description: err.Error()}},
	})
}

func notFound(reason string, err error) error {
	return withDetails(codes.NotFound, err.Error(), &errdetails.ErrorInfo{
		Reason: reason,
		Domain: errorDomain,
	})
}

// withDetails добавляет детали к статусу; если не удалось, возвращает статус без деталей
func withDetails(code codes.Code, msg string, details ...protoadapt.MessageV1) error {
	st := status.New(code, msg)
	withDetails, err := st.WithDetails(details...)
	if err != nil {
		return st.Err()
	}
	return withDetails.Err()
}
