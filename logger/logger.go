// Package logger provides adapters for popular logger libraries to work with exitboot's Logger interface.
//
// The adapters allow you to use your existing logger with exitboot without writing boilerplate.
// The standard library's slog.Logger needs the thin Slog adapter only for the Critical
// level, which slog does not define.
//
// Example with zap:
//
//	import (
//	    "exitboot"
//	    "exitboot/logger"
//	    "go.uber.org/zap"
//	)
//
//	func boot(fw exitboot.BootServices, handle exitboot.Handle) error {
//	    zapLogger, _ := zap.NewProduction()
//
//	    h, err := exitboot.New(fw, exitboot.WithLogger(logger.NewZap(zapLogger)))
//	    if err != nil {
//	        return err
//	    }
//	    return h.ExitBootServices(handle)
//	}
package logger
