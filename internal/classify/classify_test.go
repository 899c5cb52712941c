package classify

import "testing"

func TestClassify(t *testing.T) {
	tests := []struct {
		name string
		text string
		want Category
	}{
		{"aadhaar keyword", "AADHAAR card holder", Aadhaar},
		{"uidai", "Unique Identification Authority UIDAI", Aadhaar},
		{"aadhaar and uidai", "... AADHAAR ... UIDAI ...", Aadhaar},
		{"govt of india", "Govt of India", Aadhaar},
		{"government of india", "GOVERNMENT OF INDIA", Aadhaar},
		{"roll number", "Roll Number: 1234, Board: CBSE", Marksheet},
		{"marksheet", "Statement of Marks / MarkSheet", Marksheet},
		{"university", "Osmania University", Marksheet},
		{"grade", "Grade A1", Marksheet},
		{"transfer certificate", "TRANSFER CERTIFICATE", TransferCertificate},
		{"tc number", "TC Number 4411", TransferCertificate},
		{"admission number", "Admission Number: 77", TransferCertificate},
		{"conduct", "Conduct: Good", TransferCertificate},
		{"reason for leaving", "Reason for leaving: completed course", TransferCertificate},
		{"no keywords", "Invoice total 500", Unknown},
		{"empty", "", Unknown},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Classify(tt.text); got != tt.want {
				t.Errorf("Classify(%q) = %q, want %q", tt.text, got, tt.want)
			}
		})
	}
}

func TestClassify_PriorityOrder(t *testing.T) {
	tests := []struct {
		name string
		text string
		want Category
	}{
		{"aadhaar beats marksheet", "School records, Aadhaar attached", Aadhaar},
		{"aadhaar beats tc", "Transfer Certificate, Government of India", Aadhaar},
		{"marksheet beats tc", "Transfer Certificate issued by the School", Marksheet},
		{"all three", "UIDAI exam conduct", Aadhaar},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Classify(tt.text); got != tt.want {
				t.Errorf("Classify(%q) = %q, want %q", tt.text, got, tt.want)
			}
		})
	}
}

func TestClassify_Deterministic(t *testing.T) {
	text := "Board of Secondary Education, Exam March 2019, Conduct satisfactory"
	first := Classify(text)
	for i := 0; i < 10; i++ {
		if got := Classify(text); got != first {
			t.Fatalf("iteration %d: got %q, first %q", i, got, first)
		}
	}
}

func TestMatch_ReturnsKeyword(t *testing.T) {
	c, kw := Match("Hall ticket / Roll Number 12")
	if c != Marksheet || kw != "roll number" {
		t.Errorf("Match() = (%q, %q), want (marksheet, roll number)", c, kw)
	}
	c, kw = Match("nothing here")
	if c != Unknown || kw != "" {
		t.Errorf("Match() = (%q, %q), want (unknown, \"\")", c, kw)
	}
}

func TestKeywords_ReturnsCopy(t *testing.T) {
	kws := Keywords(Aadhaar)
	kws[0] = "mutated"
	if Classify("aadhaar") != Aadhaar {
		t.Error("mutating Keywords() result changed classifier tables")
	}
	if Keywords(Unknown) != nil {
		t.Error("Keywords(Unknown) should be nil")
	}
}

func TestCategories(t *testing.T) {
	got := Categories()
	want := []Category{Aadhaar, Marksheet, TransferCertificate}
	if len(got) != len(want) {
		t.Fatalf("Categories() = %v", got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("Categories()[%d] = %q, want %q", i, got[i], want[i])
		}
	}
}

func TestLabel(t *testing.T) {
	tests := []struct {
		c    Category
		want string
	}{
		{Aadhaar, "Aadhaar card"},
		{Marksheet, "Marksheet"},
		{TransferCertificate, "Transfer certificate"},
		{Unknown, "Unknown"},
		{Category("passport"), "Unknown"},
	}
	for _, tt := range tests {
		if got := tt.c.Label(); got != tt.want {
			t.Errorf("%q.Label() = %q, want %q", tt.c, got, tt.want)
		}
	}
}
