package query

import (
	"testing"
	"time"

	"github.com/tract-dev/tract/internal/types"
)

func TestLexer(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected []TokenType
		values   []string
	}{
		{
			name:     "simple equality",
			input:    "operation=EDIT",
			expected: []TokenType{TokenField, TokenEquals, TokenIdent, TokenEOF},
			values:   []string{"operation", "=", "EDIT", ""},
		},
		{
			name:     "not equals",
			input:    "priority!=SKIP",
			expected: []TokenType{TokenField, TokenNotEquals, TokenIdent, TokenEOF},
			values:   []string{"priority", "!=", "SKIP", ""},
		},
		{
			name:     "duration value",
			input:    "created>7d",
			expected: []TokenType{TokenField, TokenGreater, TokenDuration, TokenEOF},
			values:   []string{"created", ">", "7d", ""},
		},
		{
			name:     "AND expression",
			input:    "operation=EDIT AND priority=PINNED",
			expected: []TokenType{TokenField, TokenEquals, TokenIdent, TokenAnd, TokenField, TokenEquals, TokenIdent, TokenEOF},
			values:   []string{"operation", "=", "EDIT", "AND", "priority", "=", "PINNED", ""},
		},
		{
			name:     "OR expression",
			input:    "tag=decision OR tag=summary",
			expected: []TokenType{TokenField, TokenEquals, TokenIdent, TokenOr, TokenField, TokenEquals, TokenIdent, TokenEOF},
			values:   []string{"tag", "=", "decision", "OR", "tag", "=", "summary", ""},
		},
		{
			name:     "NOT expression",
			input:    "NOT priority=SKIP",
			expected: []TokenType{TokenNot, TokenField, TokenEquals, TokenIdent, TokenEOF},
			values:   []string{"NOT", "priority", "=", "SKIP", ""},
		},
		{
			name:     "parentheses",
			input:    "(priority=PINNED)",
			expected: []TokenType{TokenLParen, TokenField, TokenEquals, TokenIdent, TokenRParen, TokenEOF},
			values:   []string{"(", "priority", "=", "PINNED", ")", ""},
		},
		{
			name:     "quoted string",
			input:    `message="hello world"`,
			expected: []TokenType{TokenField, TokenEquals, TokenString, TokenEOF},
			values:   []string{"message", "=", "hello world", ""},
		},
		{
			name:     "case insensitive keywords",
			input:    "priority=PINNED and created>7d or tag=summary",
			expected: []TokenType{TokenField, TokenEquals, TokenIdent, TokenAnd, TokenField, TokenGreater, TokenDuration, TokenOr, TokenField, TokenEquals, TokenIdent, TokenEOF},
		},
		{
			name:     "identifier with hyphen",
			input:    "hash=ab-01*",
			expected: []TokenType{TokenField, TokenEquals, TokenIdent, TokenEOF},
			values:   []string{"hash", "=", "ab-01*", ""},
		},
		{
			name:     "identifier with underscore",
			input:    "content_type=tool_io",
			expected: []TokenType{TokenField, TokenEquals, TokenIdent, TokenEOF},
			values:   []string{"content_type", "=", "tool_io", ""},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			lexer := NewLexer(tt.input)
			tokens, err := lexer.Tokenize()
			if err != nil {
				t.Fatalf("Tokenize() error = %v", err)
			}

			if len(tokens) != len(tt.expected) {
				t.Fatalf("got %d tokens, want %d", len(tokens), len(tt.expected))
			}

			for i, tok := range tokens {
				if tok.Type != tt.expected[i] {
					t.Errorf("token %d: got type %v, want %v", i, tok.Type, tt.expected[i])
				}
				if tt.values != nil && tok.Value != tt.values[i] {
					t.Errorf("token %d: got value %q, want %q", i, tok.Value, tt.values[i])
				}
			}
		})
	}
}

func TestLexerErrors(t *testing.T) {
	tests := []struct {
		name  string
		input string
	}{
		{"unterminated string", `message="hello`},
		{"invalid character", "priority@PINNED"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			lexer := NewLexer(tt.input)
			_, err := lexer.Tokenize()
			if err == nil {
				t.Error("expected error, got nil")
			}
		})
	}
}

func TestParser(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{
			name:     "simple comparison",
			input:    "priority=PINNED",
			expected: "priority=PINNED",
		},
		{
			name:     "AND expression",
			input:    "priority=PINNED AND operation=EDIT",
			expected: "(priority=PINNED AND operation=EDIT)",
		},
		{
			name:     "OR expression",
			input:    "tag=decision OR tag=summary",
			expected: "(tag=decision OR tag=summary)",
		},
		{
			name:     "NOT expression",
			input:    "NOT priority=SKIP",
			expected: "NOT priority=SKIP",
		},
		{
			name:     "parentheses",
			input:    "(tag=decision OR tag=summary) AND operation=EDIT",
			expected: "((tag=decision OR tag=summary) AND operation=EDIT)",
		},
		{
			name:     "chained AND",
			input:    "priority=PINNED AND operation=EDIT AND tag=decision",
			expected: "((priority=PINNED AND operation=EDIT) AND tag=decision)",
		},
		{
			name:     "AND has higher precedence than OR",
			input:    "priority=PINNED OR operation=EDIT AND tag=decision",
			expected: "(priority=PINNED OR (operation=EDIT AND tag=decision))",
		},
		{
			name:     "NOT with parentheses",
			input:    "NOT (priority=SKIP OR priority=NORMAL)",
			expected: "NOT (priority=SKIP OR priority=NORMAL)",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			node, err := Parse(tt.input)
			if err != nil {
				t.Fatalf("Parse() error = %v", err)
			}

			got := node.String()
			if got != tt.expected {
				t.Errorf("got %q, want %q", got, tt.expected)
			}
		})
	}
}

func TestParserErrors(t *testing.T) {
	tests := []struct {
		name  string
		input string
	}{
		{"empty query", ""},
		{"missing value", "priority="},
		{"missing operator", "priority PINNED"},
		{"unclosed paren", "(priority=PINNED"},
		{"extra paren", "priority=PINNED)"},
		{"missing operand after AND", "priority=PINNED AND"},
		{"invalid operator", "priority~PINNED"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse(tt.input)
			if err == nil {
				t.Error("expected error, got nil")
			}
		})
	}
}

func TestEvaluatorErrors(t *testing.T) {
	tests := []struct {
		name  string
		query string
	}{
		{"unknown field", "unknown=value"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Evaluate(tt.query)
			if err == nil {
				t.Error("expected error, got nil")
			}
		})
	}
}

func TestPredicateEvaluation(t *testing.T) {
	now := time.Date(2025, 2, 4, 12, 0, 0, 0, time.UTC)

	editTarget := "hash-parent"
	pinnedEdit := &CommitView{
		Commit: &types.Commit{
			CommitHash:  "hash-pinned",
			TractID:     "t1",
			Operation:   types.OpEdit,
			ContentType: types.ContentDialogue,
			EditTarget:  &editTarget,
			Message:     "tighten wording",
			CreatedAt:   now.AddDate(0, 0, -1),
		},
		Priority: types.PriorityPinned,
		Tags:     []string{"decision", "revision"},
	}

	normalAppend := &CommitView{
		Commit: &types.Commit{
			CommitHash:  "hash-normal",
			TractID:     "t1",
			Operation:   types.OpAppend,
			ContentType: types.ContentToolIO,
			Message:     "tool result",
			CreatedAt:   now.AddDate(0, 0, -30),
		},
		Priority: types.PriorityNormal,
		Tags:     []string{"tool_result"},
	}

	tests := []struct {
		name    string
		query   string
		view    *CommitView
		matches bool
	}{
		{"operation=EDIT matches edit", "operation=EDIT", pinnedEdit, true},
		{"operation=EDIT doesn't match append", "operation=EDIT", normalAppend, false},
		{"priority=PINNED matches pinned", "priority=PINNED", pinnedEdit, true},
		{"priority=PINNED doesn't match normal", "priority=PINNED", normalAppend, false},
		{"priority!=PINNED matches normal", "priority!=PINNED", normalAppend, true},
		{"tag=decision matches", "tag=decision", pinnedEdit, true},
		{"tag=decision doesn't match", "tag=decision", normalAppend, false},
		{"message contains wording", `message=wording`, pinnedEdit, true},
		{"hash wildcard matches prefix", "hash=hash-pin*", pinnedEdit, true},
		{"hash wildcard doesn't match", "hash=hash-pin*", normalAppend, false},
		{"created>7d matches recent", "created>7d", pinnedEdit, true},
		{"created>7d doesn't match old", "created>7d", normalAppend, false},
		{"NOT priority=PINNED matches normal", "NOT priority=PINNED", normalAppend, true},
		{"operation=EDIT AND priority=PINNED matches", "operation=EDIT AND priority=PINNED", pinnedEdit, true},
		{"operation=EDIT AND priority=PINNED doesn't match", "operation=EDIT AND priority=PINNED", normalAppend, false},
		{"tag=decision OR tag=tool_result matches both", "tag=decision OR tag=tool_result", normalAppend, true},
		{"content_type=tool_io matches", "content_type=tool_io", normalAppend, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			pred, err := EvaluateAt(tt.query, now)
			if err != nil {
				t.Fatalf("EvaluateAt() error = %v", err)
			}
			got := pred(tt.view)
			if got != tt.matches {
				t.Errorf("predicate(%s) = %v, want %v", tt.view.Commit.CommitHash, got, tt.matches)
			}
		})
	}
}

func TestDurationParsing(t *testing.T) {
	now := time.Date(2025, 2, 4, 12, 0, 0, 0, time.UTC)
	eval := NewEvaluator(now)

	tests := []struct {
		duration string
		expected time.Time
	}{
		{"7d", now.AddDate(0, 0, -7)},
		{"24h", now.Add(-24 * time.Hour)},
		{"2w", now.AddDate(0, 0, -14)},
		{"1m", now.AddDate(0, -1, 0)},
		{"1y", now.AddDate(-1, 0, 0)},
	}

	for _, tt := range tests {
		t.Run(tt.duration, func(t *testing.T) {
			comp := &ComparisonNode{Field: "created", Op: OpGreater, Value: tt.duration, ValueType: TokenDuration}
			got, err := eval.parseTimeValue(comp)
			if err != nil {
				t.Fatalf("parseTimeValue() error = %v", err)
			}

			if got.Year() != tt.expected.Year() || got.Month() != tt.expected.Month() || got.Day() != tt.expected.Day() {
				t.Errorf("got %v, want %v", got, tt.expected)
			}
		})
	}
}
