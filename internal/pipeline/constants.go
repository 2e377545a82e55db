package pipeline

// Step names, used in logs and step errors.
const (
	StepLogin            = "login"
	StepDiscoverAccounts = "discover_accounts"
	StepEnrichBalances   = "enrich_balances"
	StepFetchOperations  = "fetch_operations"
	StepReconcile        = "reconcile"
	StepTrackBalances    = "track_balances"
	StepFetchDocuments   = "fetch_documents"
)
