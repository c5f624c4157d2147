package models

// Settings is the ledger-wide configuration changed only through admin events.
type Settings struct {
	Owner             string              `json:"owner"`
	Roles             map[string][]string `json:"roles"`
	Paused            bool                `json:"paused"`
	RegistrationFee   uint64              `json:"registration_fee"`
	ProposalFeePerDay uint64              `json:"proposal_fee_per_day"`
	FeesCollected     uint64              `json:"fees_collected"`
}

// Clone returns a deep copy safe to hand out of the ledger.
func (s Settings) Clone() Settings {
	out := s
	out.Roles = make(map[string][]string, len(s.Roles))
	for holder, roles := range s.Roles {
		out.Roles[holder] = append([]string(nil), roles...)
	}
	return out
}

func (s Settings) HasRole(holder, role string) bool {
	for _, r := range s.Roles[holder] {
		if r == role {
			return true
		}
	}
	return false
}
