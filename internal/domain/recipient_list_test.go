package domain

import "testing"

func validList() RecipientList {
	return RecipientList{
		OrganizationID: "org-1",
		Name:           "Spring leads",
		Source:         SourceUpload,
		RecipientCount: 1,
		Recipients:     []Recipient{{Email: "a@x.com", Name: "a"}},
	}
}

func TestRecipientListValidate(t *testing.T) {
	l := validList()
	if err := l.Validate(); err != nil {
		t.Fatalf("expected valid list, got %v", err)
	}

	cases := map[string]func(*RecipientList){
		"missing org":    func(l *RecipientList) { l.OrganizationID = "" },
		"blank name":     func(l *RecipientList) { l.Name = "  " },
		"bad source":     func(l *RecipientList) { l.Source = "fax" },
		"no recipients":  func(l *RecipientList) { l.Recipients = nil },
		"count mismatch": func(l *RecipientList) { l.RecipientCount = 3 },
	}
	for name, mutate := range cases {
		l := validList()
		mutate(&l)
		if err := l.Validate(); err == nil {
			t.Errorf("%s: expected validation error", name)
		}
	}
}

func TestRecipientListSummary(t *testing.T) {
	l := validList()
	l.Skipped = []RowIssue{{Row: 2, Value: "x", Reason: "bad"}}
	s := l.Summary()
	if s.Recipients != nil || s.Skipped != nil {
		t.Error("summary should drop member rows")
	}
	if len(l.Recipients) != 1 {
		t.Error("summary must not modify the original")
	}
	if s.RecipientCount != 1 {
		t.Errorf("expected count 1, got %d", s.RecipientCount)
	}
}
