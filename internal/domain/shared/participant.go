package shared

// AccountType identifies the kind of account held at a participant bank.
type AccountType string

const (
	AccountTypeChecking AccountType = "CACC"
	AccountTypeSalary   AccountType = "SLRY"
	AccountTypeSavings  AccountType = "SVGS"
	AccountTypePayment  AccountType = "TRAN"
)

// PersonType distinguishes natural from legal persons.
type PersonType string

const (
	PersonTypeNatural PersonType = "NATURAL_PERSON"
	PersonTypeLegal   PersonType = "LEGAL_PERSON"
)

// Participant identifies one side of an instant-payment transaction:
// the person, their document, and their account at a participant bank.
type Participant struct {
	Name          string      `json:"name"`
	PersonType    PersonType  `json:"person_type"`
	Document      string      `json:"document"`
	BankISPB      string      `json:"bank_ispb"`
	BankName      string      `json:"bank_name,omitempty"`
	Branch        string      `json:"branch"`
	AccountNumber string      `json:"account_number"`
	AccountType   AccountType `json:"account_type"`
	Key           string      `json:"key,omitempty"` // Pix addressing key, when known
}
