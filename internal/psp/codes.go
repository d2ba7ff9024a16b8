package psp

// FailureReason is the internal taxonomy a PSP reject code translates to.
type FailureReason struct {
	Code    string
	Message string
}

// ISO 20022 / SPI reject codes observed on the instant-payment network.
var rejectReasons = map[string]string{
	"AB03": "settlement aborted by the receiving agent",
	"AB09": "transaction failed at the creditor agent",
	"AC03": "creditor account number invalid",
	"AC04": "creditor account closed",
	"AC06": "creditor account blocked",
	"AC07": "creditor account closed for this kind of entry",
	"AG03": "transaction type not supported by the creditor agent",
	"AM02": "amount exceeds the allowed limit",
	"AM04": "insufficient funds",
	"AM18": "invalid number of transactions",
	"BE01": "creditor identification does not match the account",
	"BE17": "invalid creditor identification code",
	"CH11": "creditor identifier incorrect",
	"DS04": "order rejected by the PSP",
	"DT05": "invalid cut-off date or time",
	"ED05": "settlement of the transaction has failed",
	"FF07": "purpose of the transaction is invalid",
	"FF08": "end-to-end id is invalid",
	"RR04": "regulatory reason",
	"SL02": "creditor does not accept payments from this kind of debtor",
}

// TranslateRejectCode maps a PSP reject code to the internal failure
// taxonomy. Unknown codes translate to a generic rejection carrying the
// original code.
func TranslateRejectCode(code string) FailureReason {
	if msg, ok := rejectReasons[code]; ok {
		return FailureReason{Code: code, Message: msg}
	}
	return FailureReason{Code: code, Message: "transaction rejected by the PSP"}
}
