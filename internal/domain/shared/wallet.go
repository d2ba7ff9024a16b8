package shared

import "github.com/google/uuid"

// WalletState enumerates wallet availability.
type WalletState string

const (
	WalletStateActive      WalletState = "ACTIVE"
	WalletStateDeactivated WalletState = "DEACTIVATED"
)

// Wallet is the minimal view of a client wallet this engine needs for
// integrity checks and ledger calls.
type Wallet struct {
	ID     uuid.UUID   `json:"id"`
	UserID uuid.UUID   `json:"user_id"`
	State  WalletState `json:"state"`
}

// Active reports whether the wallet can receive or send funds.
func (w *Wallet) Active() bool {
	return w.State == WalletStateActive
}

// Bank is a participant institution on the instant-payment network.
type Bank struct {
	ISPB string `json:"ispb"`
	Name string `json:"name"`
}
