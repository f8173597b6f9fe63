package constants

// API route constants
const (
	APIRoute          = "/api"
	ChatRoute         = "/chat"
	TranscribeRoute   = "/transcribe"
	UsageRoute        = "/usage"
	ConversationsRoute = "/conversations"
	BillingRoute      = "/billing"
	AdminRoute        = "/admin"
	HealthRoute       = "/healthz"

	// Interface build served as the SPA root
	InterfaceDir = "interface/dist"
)
