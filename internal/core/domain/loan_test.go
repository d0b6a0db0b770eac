package domain

import "testing"

var allStatuses = []LoanStatus{
	LoanDraft, LoanSubmitted, LoanDocumentVerification, LoanCreditAnalysis,
	LoanApprovedInternal, LoanRejectedInternal, LoanMerefSubmitted,
	LoanMerefApproved, LoanMerefRejected, LoanDisbursed, LoanCancelled,
}

var allEvents = []LoanEvent{
	EventSubmit, EventStartVerification, EventVerifyOK, EventVerifyFail,
	EventInternalApprove, EventInternalReject, EventSubmitExternal,
	EventDisburseDirect, EventExternalApprove, EventExternalReject,
	EventDisburse, EventCancel,
}

func TestLoanStatus_Next_Table(t *testing.T) {
	cases := []struct {
		from  LoanStatus
		event LoanEvent
		want  LoanStatus
	}{
		{LoanDraft, EventSubmit, LoanSubmitted},
		{LoanSubmitted, EventStartVerification, LoanDocumentVerification},
		{LoanDocumentVerification, EventVerifyOK, LoanCreditAnalysis},
		{LoanDocumentVerification, EventVerifyFail, LoanRejectedInternal},
		{LoanCreditAnalysis, EventInternalApprove, LoanApprovedInternal},
		{LoanCreditAnalysis, EventInternalReject, LoanRejectedInternal},
		{LoanApprovedInternal, EventSubmitExternal, LoanMerefSubmitted},
		{LoanApprovedInternal, EventDisburseDirect, LoanDisbursed},
		{LoanMerefSubmitted, EventExternalApprove, LoanMerefApproved},
		{LoanMerefSubmitted, EventExternalReject, LoanMerefRejected},
		{LoanMerefApproved, EventDisburse, LoanDisbursed},
	}

	allowed := make(map[LoanStatus]map[LoanEvent]LoanStatus)
	for _, c := range cases {
		if allowed[c.from] == nil {
			allowed[c.from] = make(map[LoanEvent]LoanStatus)
		}
		allowed[c.from][c.event] = c.want
	}

	// Every (status, event) pair resolves exactly as the table says;
	// everything outside the table is rejected.
	for _, from := range allStatuses {
		for _, event := range allEvents {
			got, ok := from.Next(event)
			if event == EventCancel {
				if from.IsTerminal() {
					if ok {
						t.Errorf("cancel must be rejected from terminal %s", from)
					}
				} else if !ok || got != LoanCancelled {
					t.Errorf("cancel from %s: got (%s, %v)", from, got, ok)
				}
				continue
			}

			want, allowedHere := allowed[from][event]
			if allowedHere != ok {
				t.Errorf("%s on %s: allowed=%v, want %v", event, from, ok, allowedHere)
				continue
			}
			if ok && got != want {
				t.Errorf("%s on %s: got %s, want %s", event, from, got, want)
			}
		}
	}
}

func TestLoanStatus_Terminality(t *testing.T) {
	terminal := map[LoanStatus]bool{
		LoanRejectedInternal: true,
		LoanMerefRejected:    true,
		LoanDisbursed:        true,
		LoanCancelled:        true,
	}
	for _, s := range allStatuses {
		if s.IsTerminal() != terminal[s] {
			t.Errorf("%s: IsTerminal=%v, want %v", s, s.IsTerminal(), terminal[s])
		}
	}
}

func TestLoanRequest_DocumentsVerified(t *testing.T) {
	l := &LoanRequest{}
	if l.DocumentsVerified() {
		t.Error("no documents must not count as verified")
	}

	l.Documents = []Document{{Name: "id_card"}, {Name: "income_proof"}}
	if l.DocumentsVerified() {
		t.Error("unverified documents must not count as verified")
	}

	l.Documents[0].Verified = true
	if l.DocumentsVerified() {
		t.Error("one pending document must block verification")
	}

	l.Documents[1].Verified = true
	if !l.DocumentsVerified() {
		t.Error("all documents verified must pass")
	}
}
