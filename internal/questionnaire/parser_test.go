package questionnaire

import "testing"

func TestParseNumberedQuestions(t *testing.T) {
	text := `Security Questionnaire

1. Do you encrypt data at rest?

2. Describe your incident response process.

3) What certifications do you hold?`

	questions := Parse(text)
	if len(questions) != 3 {
		t.Fatalf("expected 3 questions, got %d: %+v", len(questions), questions)
	}

	if questions[0].QuestionText != "Do you encrypt data at rest?" {
		t.Errorf("unexpected question text: %q", questions[0].QuestionText)
	}
	if questions[0].SectionID != "1" || questions[2].SectionID != "3" {
		t.Errorf("numbered items should set section id from their number: %+v", questions)
	}
	if questions[0].SectionTitle != "Security Questionnaire" {
		t.Errorf("expected header block as section title, got %q", questions[0].SectionTitle)
	}
	for i, q := range questions {
		if q.OrderIndex != i {
			t.Errorf("question %d has order index %d", i, q.OrderIndex)
		}
	}
}

func TestParseQuestionPrefixes(t *testing.T) {
	text := `Q1. Is production access logged?

Question 2) Are backups tested regularly?`

	questions := Parse(text)
	if len(questions) != 2 {
		t.Fatalf("expected 2 questions, got %d", len(questions))
	}
	if questions[0].QuestionText != "Is production access logged?" {
		t.Errorf("Q prefix not stripped: %q", questions[0].QuestionText)
	}
	if questions[1].QuestionText != "Are backups tested regularly?" {
		t.Errorf("Question prefix not stripped: %q", questions[1].QuestionText)
	}
}

func TestParseDottedNumbersUseTopLevelSection(t *testing.T) {
	text := `2.1. Who approves firewall changes?

2.3.1) How often are rules reviewed?`

	questions := Parse(text)
	if len(questions) != 2 {
		t.Fatalf("expected 2 questions, got %d", len(questions))
	}
	for _, q := range questions {
		if q.SectionID != "2" {
			t.Errorf("expected top-level section id 2, got %q", q.SectionID)
		}
	}
}

func TestParseUnnumberedQuestionMarkBlock(t *testing.T) {
	text := `Data Handling

Please explain how customer data is segregated between tenants, and
whether encryption keys are rotated?`

	questions := Parse(text)
	if len(questions) != 1 {
		t.Fatalf("expected 1 question, got %d", len(questions))
	}
	if questions[0].SectionTitle != "Data Handling" {
		t.Errorf("unexpected section title: %q", questions[0].SectionTitle)
	}
	// multi-line block collapses to a single line
	if got := questions[0].QuestionText; got == "" || got[len(got)-1] != '?' {
		t.Errorf("unexpected question text: %q", got)
	}
}

func TestParseLineByLineFallback(t *testing.T) {
	// numbered lines inside one block, no blank lines between them and no
	// question marks
	text := `Please respond to the following items.
1. Describe the data retention policy.
2. List all subprocessors with access to customer data.`

	questions := Parse(text)
	if len(questions) != 2 {
		t.Fatalf("expected 2 questions, got %d: %+v", len(questions), questions)
	}
	if questions[1].QuestionText != "List all subprocessors with access to customer data." {
		t.Errorf("unexpected question text: %q", questions[1].QuestionText)
	}
}

func TestParseSkipsNoise(t *testing.T) {
	questions := Parse("ab\n\n    \n\nxy")
	if len(questions) != 0 {
		t.Errorf("expected no questions from noise, got %+v", questions)
	}
}
