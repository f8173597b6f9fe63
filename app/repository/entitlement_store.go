package repository

// EntitlementStore bundles the user and usage repositories into the flat
// plan/counter surface the entitlement ledger works against.
type EntitlementStore struct {
	users UserRepository
	usage UsageRepository
}

// NewEntitlementStore creates an entitlement store backed by the given repositories
func NewEntitlementStore(users UserRepository, usage UsageRepository) *EntitlementStore {
	return &EntitlementStore{users: users, usage: usage}
}

func (s *EntitlementStore) GetPlan(userID uint) (string, error) {
	return s.users.GetPlan(userID)
}

func (s *EntitlementStore) SetPlan(userID uint, plan string) error {
	return s.users.SetPlan(userID, plan)
}

func (s *EntitlementStore) GetUsed(userID uint, periodKey string) (int64, error) {
	return s.usage.GetUsed(userID, periodKey)
}

func (s *EntitlementStore) AddUsed(userID uint, periodKey string, tokens int64) error {
	return s.usage.AddUsed(userID, periodKey, tokens)
}

func (s *EntitlementStore) GetAllowance(userID uint, periodKey string) (int64, error) {
	return s.usage.GetAllowance(userID, periodKey)
}

func (s *EntitlementStore) AddAllowance(userID uint, periodKey string, tokens int64) error {
	return s.usage.AddAllowance(userID, periodKey, tokens)
}
