package ingest

import (
	"strings"
	"testing"
)

func TestParseContactsRejectsMalformedRows(t *testing.T) {
	input := strings.Join([]string{
		"phone,name,custom_message",
		"+966501111111,Ahmed,",
		"0502222222,Sara,Special offer",
		"12345,Bad Phone,",
		"966503333333,,",
		"٠٥٠٤٤٤٤٤٤٤,Huda,",
		"abc-def,Letters,",
		"503334444,Omar,",
		"966505555555,Lina,",
		"505556666,Noor,",
		"966507777777,Yousef,",
	}, "\n")

	contacts, rejected, err := ParseContacts(strings.NewReader(input), "966")
	if err != nil {
		t.Fatalf("ParseContacts error = %v", err)
	}
	if len(contacts) != 8 {
		t.Errorf("accepted = %d, want 8", len(contacts))
	}
	if len(rejected) != 2 {
		t.Fatalf("rejected = %d, want 2", len(rejected))
	}
	for _, r := range rejected {
		if r.Reason == "" {
			t.Errorf("rejected row %d has no reason", r.Line)
		}
	}
	if rejected[0].Line != 4 || rejected[1].Line != 7 {
		t.Errorf("rejected lines = %d, %d, want 4 and 7", rejected[0].Line, rejected[1].Line)
	}
}

func TestParseContactsNormalizesAndDedupes(t *testing.T) {
	input := strings.Join([]string{
		"phone,name",
		"+966501234567,First",
		"0501234567,Duplicate",
	}, "\n")

	contacts, rejected, err := ParseContacts(strings.NewReader(input), "966")
	if err != nil {
		t.Fatalf("ParseContacts error = %v", err)
	}
	if len(contacts) != 1 {
		t.Fatalf("accepted = %d, want 1", len(contacts))
	}
	if contacts[0].Phone.Key != "966501234567" {
		t.Errorf("key = %q", contacts[0].Phone.Key)
	}
	if contacts[0].Name != "First" {
		t.Errorf("name = %q, want First", contacts[0].Name)
	}
	if len(rejected) != 1 || !strings.Contains(rejected[0].Reason, "duplicate") {
		t.Errorf("rejected = %+v, want one duplicate", rejected)
	}
}

func TestParseContactsRequiresPhoneColumn(t *testing.T) {
	_, _, err := ParseContacts(strings.NewReader("name,city\nAhmed,Riyadh\n"), "966")
	if err == nil {
		t.Fatal("ParseContacts without phone column succeeded, want error")
	}
}

func TestParseContactsOptionalColumns(t *testing.T) {
	input := "phone,name,custom_message,city\n0501234567,Sara,Big sale,Jeddah\n"
	contacts, _, err := ParseContacts(strings.NewReader(input), "966")
	if err != nil {
		t.Fatalf("ParseContacts error = %v", err)
	}
	c := contacts[0]
	if c.Name != "Sara" || c.CustomMessage != "Big sale" || c.City != "Jeddah" {
		t.Errorf("contact = %+v", c)
	}
}

func TestRenderTemplate(t *testing.T) {
	input := "phone,name,custom_message\n0501234567,Sara,Big sale\n"
	contacts, _, err := ParseContacts(strings.NewReader(input), "966")
	if err != nil {
		t.Fatalf("ParseContacts error = %v", err)
	}

	got := RenderTemplate("Hello {name}! {custom_message} ({phone})", contacts[0])
	want := "Hello Sara! Big sale (+966501234567)"
	if got != want {
		t.Errorf("RenderTemplate = %q, want %q", got, want)
	}

	// Missing values render empty and the result is trimmed.
	contacts[0].Name = ""
	contacts[0].CustomMessage = ""
	got = RenderTemplate("Hello {name}! {custom_message}", contacts[0])
	if got != "Hello !" {
		t.Errorf("RenderTemplate with empty fields = %q", got)
	}
}
