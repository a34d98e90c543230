package log

// Common field names for structured logging
const (
	FieldComponent  = "component"
	FieldRequestID  = "request_id"
	FieldMethod     = "method"
	FieldPath       = "path"
	FieldURL        = "url"
	FieldStatusCode = "status_code"
	FieldDuration   = "duration_ms"
	FieldSuccess    = "success"
	FieldError      = "error"
	FieldErrorType  = "error_type"
	FieldOperation  = "operation"
	FieldAttempt    = "attempt"
	FieldWait       = "wait"
	FieldPlanID     = "plan_id"
	FieldMemberID   = "member_id"
	FieldPaymentID  = "payment_id"
	FieldAmount     = "amount"
	FieldCount      = "count"
)

// Components defines standard component names
const (
	ComponentApp        = "app"
	ComponentAPI        = "api"
	ComponentRepository = "repository"
	ComponentTracker    = "tracker"
	ComponentCache      = "cache"
	ComponentStorage    = "storage"
	ComponentAMQP       = "amqp"
	ComponentRefresher  = "refresher"
	ComponentBackend    = "backend"
	ComponentDevServer  = "devserver"
)

// Operations defines standard operation names
const (
	OpCreatePlan         = "create_plan"
	OpListPlans          = "list_plans"
	OpGetPlan            = "get_plan"
	OpCreateMember       = "create_member"
	OpListMembers        = "list_members"
	OpCreatePayment      = "create_payment"
	OpListPayments       = "list_payments"
	OpListMemberPayments = "list_member_payments"
	OpRefresh            = "refresh"
	OpPublish            = "publish"
	OpShutdown           = "shutdown"
	OpStartup            = "startup"
)

// ErrorTypes defines standard error type categories
const (
	ErrorTypeValidation = "validation_error"
	ErrorTypeNetwork    = "network_error"
	ErrorTypeServer     = "server_error"
	ErrorTypeMalformed  = "malformed_response"
	ErrorTypeTimeout    = "timeout_error"
	ErrorTypeNotFound   = "not_found_error"
	ErrorTypeInternal   = "internal_error"
)

// LogFields provides a builder pattern for structured log fields
type LogFields map[string]any

// NewFields creates a new LogFields instance
func NewFields() LogFields {
	return make(LogFields)
}

// WithComponent adds component field
func (f LogFields) WithComponent(component string) LogFields {
	f[FieldComponent] = component
	return f
}

// WithRequestID adds request ID field
func (f LogFields) WithRequestID(requestID string) LogFields {
	f[FieldRequestID] = requestID
	return f
}

// WithError adds error field
func (f LogFields) WithError(err error) LogFields {
	if err != nil {
		f[FieldError] = err.Error()
	}
	return f
}

// WithErrorType adds the error category
func (f LogFields) WithErrorType(errorType string) LogFields {
	f[FieldErrorType] = errorType
	return f
}

// WithOperation adds operation field
func (f LogFields) WithOperation(op string) LogFields {
	f[FieldOperation] = op
	return f
}

// WithPlan adds the plan id
func (f LogFields) WithPlan(planID string) LogFields {
	if planID != "" {
		f[FieldPlanID] = planID
	}
	return f
}

// WithMember adds the member id
func (f LogFields) WithMember(memberID string) LogFields {
	if memberID != "" {
		f[FieldMemberID] = memberID
	}
	return f
}

// WithPayment adds payment fields
func (f LogFields) WithPayment(paymentID, amount string) LogFields {
	f[FieldPaymentID] = paymentID
	f[FieldAmount] = amount
	return f
}

// WithHTTPRequest adds HTTP request fields
func (f LogFields) WithHTTPRequest(method, url string) LogFields {
	f[FieldMethod] = method
	f[FieldURL] = url
	return f
}

// WithHTTPResponse adds HTTP response fields
func (f LogFields) WithHTTPResponse(statusCode int, durationMs int64, success bool) LogFields {
	f[FieldStatusCode] = statusCode
	f[FieldDuration] = durationMs
	f[FieldSuccess] = success
	return f
}

// ToSlice converts LogFields to a slice for slog
func (f LogFields) ToSlice() []any {
	slice := make([]any, 0, len(f)*2)
	for k, v := range f {
		slice = append(slice, k, v)
	}
	return slice
}
