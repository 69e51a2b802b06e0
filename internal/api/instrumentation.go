package api

import "go.opentelemetry.io/otel"

const scopeName = "aidebate/internal/api"

var tracer = otel.Tracer(scopeName)
