package fastq

import (
	"bytes"
	"strings"
	"testing"
)

const fq = `@c37d4f98-2ef5-4b18-aebc-75d4c0c1d6ef runid=5c7b1d addr=1/22/113
ATACAGGCCTGATCCACTGTGCCCAGTCTATTTCATTATTGAATACAGAATAGTTGTAAATACAGGGGGTCTGGGC
+
AAAAAEEEEEEE#EEAEEEEEEEEEE#EEE##E#EEEE#EEEE#E#EEEEE#EEE#EEEAEE#A#####E#E###E
@8b1ca2c8-49c1-4f09-9a1e-2f96f1f7b6ce runid=5c7b1d addr=1/22/114
CTCAACTCTGAGTCAGACAGAAATACTTTTGGTATGAGTTACATCATTCTTTTTCAACATATACAAGGGTAGCCGT
+
AAAAAEEEEEEE#EEEEEEEEEEEEE#EEE##E#EEEEEEEEE#E#EEEEEEEEE#EAEEEE#A#####E#A###E
@0f177migh-5534-422f-a6b1-c2d79d8f0b92
GAGTAACCACGTTCCCATGGCCACAGCTGATTGAGTCACACCTGATCCGGGAGAGGCAATCCTGAGAAAGGATTTC
+
AAAAAEEEEEEE#EEEEEEEEEAEEE#EEA##E#EEEEEEEE<#E#<EEEEEEEE#<EEEA/#/#####A#E###A
`

func stringScanner(s string) *Scanner {
	return NewScanner(bytes.NewReader([]byte(s)), All)
}

func scanErr(s string) error {
	scan := stringScanner(s)
	var r Read
	for scan.Scan(&r) {
	}
	return scan.Err()
}

func TestFASTQ(t *testing.T) {
	s := stringScanner(fq)
	var r Read
	if !s.Scan(&r) {
		t.Fatal(s.Err())
	}
	expect := Read{
		ID:   "@c37d4f98-2ef5-4b18-aebc-75d4c0c1d6ef runid=5c7b1d addr=1/22/113",
		Seq:  "ATACAGGCCTGATCCACTGTGCCCAGTCTATTTCATTATTGAATACAGAATAGTTGTAAATACAGGGGGTCTGGGC",
		Unk:  "+",
		Qual: "AAAAAEEEEEEE#EEAEEEEEEEEEE#EEE##E#EEEE#EEEE#E#EEEEE#EEE#EEEAEE#A#####E#E###E",
	}
	if got, want := r, expect; got != want {
		t.Errorf("got %v, want %v", got, want)
	}
	var n int
	for s.Scan(&r) {
		n++
	}
	if got, want := n, 2; got != want {
		t.Errorf("got %v, want %v", got, want)
	}
	if err := s.Err(); err != nil {
		t.Errorf("unexpected error %v", err)
	}
}

func TestBadFASTQ(t *testing.T) {
	if got, want := scanErr("12312#"), ErrInvalid; got != want {
		t.Errorf("got %v, want %v", got, want)
	}
	if got, want := scanErr("@1234\n123"), ErrShort; got != want {
		t.Errorf("got %v, want %v", got, want)
	}
	if got, want := scanErr("@1234\nACGT\nACGT\nAAAA"), ErrInvalid; got != want {
		t.Errorf("got %v, want %v", got, want)
	}
}

// TestLongRead verifies the scanner accepts sequence lines far beyond
// bufio's default token size.
func TestLongRead(t *testing.T) {
	seq := strings.Repeat("ACGT", 100000)
	qual := strings.Repeat("E", len(seq))
	s := stringScanner("@verylong\n" + seq + "\n+\n" + qual + "\n")
	var r Read
	if !s.Scan(&r) {
		t.Fatal(s.Err())
	}
	if got, want := len(r.Seq), len(seq); got != want {
		t.Errorf("got %v, want %v", got, want)
	}
}

func TestName(t *testing.T) {
	tests := []struct {
		id, want string
	}{
		{"@read1 runid=5c desc", "read1"},
		{"@read1", "read1"},
		{"@read1\textra", "read1"},
	}
	for _, test := range tests {
		r := Read{ID: test.id}
		if got := r.Name(); got != test.want {
			t.Errorf("Name(%q): got %v, want %v", test.id, got, test.want)
		}
	}
}

func TestAnnotate(t *testing.T) {
	r := Read{ID: "@read1 runid=5c"}
	r.Annotate("ACGTACGT", "TTTTGGGG")
	if got, want := r.ID, "@read1_ACGTACGT_TTTTGGGG runid=5c"; got != want {
		t.Errorf("got %v, want %v", got, want)
	}
	if got, want := r.Name(), "read1_ACGTACGT_TTTTGGGG"; got != want {
		t.Errorf("got %v, want %v", got, want)
	}
}

func TestTrim(t *testing.T) {
	r := Read{Seq: "ACGTACGT", Qual: "EEEEEEEE"}
	r.Trim(4)
	if got, want := r.Seq, "ACGT"; got != want {
		t.Errorf("got %v, want %v", got, want)
	}
	if got, want := r.Qual, "EEEE"; got != want {
		t.Errorf("got %v, want %v", got, want)
	}
	r.Trim(100)
	if got, want := r.Seq, "ACGT"; got != want {
		t.Errorf("got %v, want %v", got, want)
	}
}

func TestWriter(t *testing.T) {
	var (
		s = stringScanner(fq)
		b = new(bytes.Buffer)
		w = NewWriter(b)
		r Read
	)
	for s.Scan(&r) {
		if err := w.Write(&r); err != nil {
			t.Fatal(err)
		}
	}
	if err := s.Err(); err != nil {
		t.Fatal(err)
	}
	if got, want := b.String(), fq; got != want {
		t.Errorf("got %v, want %v", got, want)
	}
}
