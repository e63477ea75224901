package log

import "slices"

// Attribute keys shared by every component.
const (
	FieldComponent = "component"
	FieldOperation = "operation"
	FieldDuration  = "duration_ms"
	FieldError     = "error"
	FieldErrorType = "error_type"
	FieldEvent     = "event"
)

// Request attributes.
const (
	FieldRequestID  = "request_id"
	FieldClientIP   = "client_ip"
	FieldMethod     = "method"
	FieldPath       = "path"
	FieldQuery      = "query"
	FieldStatusCode = "status_code"
	FieldUserAgent  = "user_agent"
	FieldReferer    = "referer"
	FieldSuccess    = "success"
)

// Ledger attributes. Amounts are logged in cents, never formatted.
const (
	FieldUserID        = "user_id"
	FieldAccountID     = "account_id"
	FieldTransactionID = "transaction_id"
	FieldCategoryID    = "category_id"
	FieldKind          = "type"
	FieldAmountCents   = "amount_cents"
	FieldDeltaCents    = "delta_cents"
	FieldPeriod        = "period"
	FieldInsightType   = "insight_type"
)

const (
	ComponentApp       = "app"
	ComponentHTTP      = "http"
	ComponentLedger    = "ledger"
	ComponentAccount   = "account"
	ComponentCategory  = "category"
	ComponentAnalytics = "analytics"
	ComponentInsight   = "insight"
	ComponentAuth      = "auth"
	ComponentReport    = "report"
	ComponentBackend   = "backend"
	ComponentAMQP      = "amqp"
	ComponentWorker    = "worker"
	ComponentSheets    = "sheets"
	ComponentCache     = "cache"
	ComponentSecurity  = "security"
	ComponentRateLimit = "rate_limit"
	ComponentTrace     = "trace"
)

const (
	OpCreate   = "create"
	OpUpdate   = "update"
	OpDelete   = "delete"
	OpSeed     = "seed"
	OpGenerate = "generate"
	OpExport   = "export"
	OpPublish  = "publish"
	OpConsume  = "consume"
	OpStartup  = "startup"
	OpShutdown = "shutdown"
)

// Values of FieldErrorType. ErrorTypeOf picks one from a domain error.
const (
	ErrorTypeValidation    = "validation_error"
	ErrorTypeConfiguration = "configuration_error"
	ErrorTypeNetwork       = "network_error"
	ErrorTypeAuth          = "auth_error"
	ErrorTypeTimeout       = "timeout_error"
	ErrorTypeNotFound      = "not_found_error"
	ErrorTypeConflict      = "conflict_error"
	ErrorTypeInternal      = "internal_error"
)

// LogFields collects attributes for one record. Setters overwrite.
type LogFields map[string]any

func NewFields() LogFields {
	return LogFields{}
}

func (f LogFields) set(key string, v any) LogFields {
	f[key] = v
	return f
}

func (f LogFields) WithClientIP(ip string) LogFields { return f.set(FieldClientIP, ip) }
func (f LogFields) WithOperation(op string) LogFields { return f.set(FieldOperation, op) }
func (f LogFields) WithUser(userID string) LogFields { return f.set(FieldUserID, userID) }
func (f LogFields) WithPeriod(period string) LogFields { return f.set(FieldPeriod, period) }
func (f LogFields) WithErrorType(kind string) LogFields { return f.set(FieldErrorType, kind) }

// WithError records err's message. A nil err leaves an earlier one in place.
func (f LogFields) WithError(err error) LogFields {
	if err == nil {
		return f
	}
	return f.set(FieldError, err.Error())
}

// WithTransaction records which ledger entry a record is about.
func (f LogFields) WithTransaction(id, accountID, kind string, amountCents int64) LogFields {
	return f.set(FieldTransactionID, id).
		set(FieldAccountID, accountID).
		set(FieldKind, kind).
		set(FieldAmountCents, amountCents)
}

// WithHTTPRequest records the request line. Empty header values are omitted.
func (f LogFields) WithHTTPRequest(method, path, query, userAgent, referer string) LogFields {
	f.set(FieldMethod, method).set(FieldPath, path)
	for key, v := range map[string]string{FieldQuery: query, FieldUserAgent: userAgent, FieldReferer: referer} {
		if v != "" {
			f[key] = v
		}
	}
	return f
}

func (f LogFields) WithHTTPResponse(statusCode int, durationMs int64, success bool) LogFields {
	return f.set(FieldStatusCode, statusCode).
		set(FieldDuration, durationMs).
		set(FieldSuccess, success)
}

// ToSlice flattens the fields into slog key/value pairs, sorted by key so
// text output is stable.
func (f LogFields) ToSlice() []any {
	keys := make([]string, 0, len(f))
	for k := range f {
		keys = append(keys, k)
	}
	slices.Sort(keys)

	out := make([]any, 0, len(f)*2)
	for _, k := range keys {
		out = append(out, k, f[k])
	}
	return out
}
