package log

// Common field names for structured logging.
const (
	FieldComponent  = "component"
	FieldRequestID  = "request_id"
	FieldClientIP   = "client_ip"
	FieldMethod     = "method"
	FieldPath       = "path"
	FieldStatusCode = "status_code"
	FieldDuration   = "duration_ms"
	FieldError      = "error"

	FieldAccountID = "account_id"
	FieldMonth     = "month"
	FieldCurrency  = "currency"
	FieldAmount    = "amount"
	FieldDegraded  = "degraded_conversions"
	FieldShareID   = "share_id"
	FieldTemplate  = "template_id"
)

// Standard component names.
const (
	ComponentApp       = "app"
	ComponentHTTP      = "http"
	ComponentDashboard = "dashboard"
	ComponentSharing   = "sharing"
	ComponentStorage   = "storage"
	ComponentAMQP      = "amqp"
	ComponentWorker    = "worker"
	ComponentFX        = "fx"
	ComponentExport    = "export"
	ComponentRecurring = "recurring"
)
