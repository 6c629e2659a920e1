package rules

import (
	"github.com/mcpscout/mcpscout/internal/capability"
	"github.com/mcpscout/mcpscout/internal/finding"
)

// BuiltinVersion identifies the built-in corpus shipped with the binary.
const BuiltinVersion = "builtin-2025.08"

// Builtin returns the default rule corpus. External corpora loaded with
// LoadFile are merged over these by ID.
func Builtin() []Rule {
	return []Rule{
		// Command injection.
		{
			ID:          "CMD-001",
			Check:       "command_injection",
			Severity:    finding.SeverityCritical,
			Kind:        MatchRegex,
			Pattern:     `(?i)\b(exec|shell|bash|powershell|eval|system|subprocess|popen|spawn|fork)\b`,
			AppliesTo:   capability.KindTool,
			Title:       "Tool name or schema references command execution",
			Description: "The tool metadata references direct command execution primitives.",
			Remediation: "Review whether the tool genuinely needs shell access; prefer narrow, parameterized operations.",
		},
		{
			ID:          "CMD-002",
			Check:       "command_injection",
			Severity:    finding.SeverityHigh,
			Kind:        MatchRegex,
			Pattern:     "\\$\\(|`|&&|\\|\\||;\\s*(rm|curl|wget|nc|sh)\\b",
			Title:       "Shell metacharacters in capability metadata",
			Description: "Descriptor text contains shell chaining or substitution sequences.",
			Remediation: "Strip shell metacharacters from descriptions and example arguments.",
		},
		{
			ID:          "CMD-003",
			Check:       "command_injection",
			Severity:    finding.SeverityHigh,
			Kind:        MatchRegex,
			Pattern:     `(?i)\b(rm\s+-rf|dd\s+if=|mkfs|fdisk|netcat|nc\s+-e)\b`,
			Title:       "Destructive command pattern in capability metadata",
			Remediation: "Remove destructive command examples from tool metadata.",
		},

		// SQL injection.
		{
			ID:          "SQL-001",
			Check:       "sql_injection",
			Severity:    finding.SeverityHigh,
			Kind:        MatchRegex,
			Pattern:     `(?i)(union\s+select|drop\s+table|insert\s+into|delete\s+from|or\s+1\s*=\s*1|'\s*--)`,
			Title:       "SQL injection pattern in capability metadata",
			Remediation: "Use parameterized queries; never interpolate caller input into SQL.",
		},
		{
			ID:          "SQL-002",
			Check:       "sql_injection",
			Severity:    finding.SeverityMedium,
			Kind:        MatchRegex,
			Pattern:     `(?i)\braw\s+sql\b|\bexecute\s+arbitrary\s+quer`,
			AppliesTo:   capability.KindTool,
			Title:       "Tool advertises raw SQL execution",
			Remediation: "Expose narrow query operations instead of raw SQL passthrough.",
		},

		// Path traversal.
		{
			ID:          "PATH-001",
			Check:       "path_traversal",
			Severity:    finding.SeverityHigh,
			Kind:        MatchSubstring,
			Pattern:     "../",
			Title:       "Path traversal sequence in capability metadata",
			Description: "Descriptor text contains a parent-directory traversal sequence.",
			Remediation: "Canonicalize and validate paths server-side; reject traversal sequences.",
		},
		{
			ID:       "PATH-002",
			Check:    "path_traversal",
			Severity: finding.SeverityHigh,
			Kind:     MatchSubstring,
			Pattern:  `..\`,
			Title:    "Windows path traversal sequence in capability metadata",
		},
		{
			ID:       "PATH-003",
			Check:    "path_traversal",
			Severity: finding.SeverityHigh,
			Kind:     MatchRegex,
			Pattern:  `(?i)(%2e%2e|/etc/(passwd|shadow)|\\windows\\system32|/proc/self)`,
			Title:    "Sensitive system path referenced in capability metadata",
		},

		// Secret leakage signatures.
		{
			ID:          "SEC-001",
			Check:       "secrets_leakage",
			Severity:    finding.SeverityCritical,
			Kind:        MatchRegex,
			Pattern:     `AKIA[0-9A-Z]{16}`,
			Title:       "AWS access key ID in capability metadata",
			Remediation: "Revoke the key immediately and remove it from server metadata.",
		},
		{
			ID:       "SEC-002",
			Check:    "secrets_leakage",
			Severity: finding.SeverityCritical,
			Kind:     MatchRegex,
			Pattern:  `gh[pousr]_[A-Za-z0-9_]{36,255}|github_pat_[A-Za-z0-9_]{80,255}`,
			Title:    "GitHub token in capability metadata",
		},
		{
			ID:       "SEC-003",
			Check:    "secrets_leakage",
			Severity: finding.SeverityCritical,
			Kind:     MatchRegex,
			Pattern:  `-----BEGIN (RSA |EC |OPENSSH )?PRIVATE KEY-----`,
			Title:    "Private key material in capability metadata",
		},
		{
			ID:       "SEC-004",
			Check:    "secrets_leakage",
			Severity: finding.SeverityHigh,
			Kind:     MatchRegex,
			Pattern:  `eyJ[a-zA-Z0-9_\-]{10,}\.eyJ[a-zA-Z0-9_\-]{10,}\.[a-zA-Z0-9_\-]{10,}`,
			Title:    "JWT embedded in capability metadata",
		},
		{
			ID:       "SEC-005",
			Check:    "secrets_leakage",
			Severity: finding.SeverityHigh,
			Kind:     MatchRegex,
			Pattern:  `(?i)(api[_-]?key|secret|password|credential)["']?\s*[:=]\s*["']?[a-zA-Z0-9_\-]{16,}`,
			Title:    "Hardcoded credential assignment in capability metadata",
		},

		// Prompt injection.
		{
			ID:          "PRM-001",
			Check:       "prompt_injection",
			Severity:    finding.SeverityHigh,
			Kind:        MatchRegex,
			Pattern:     `(?i)(ignore|forget|disregard)\s+(all\s+)?(previous|prior|above)\s+(instructions|context|messages)`,
			Title:       "Instruction-override phrase in capability metadata",
			Description: "Descriptor text attempts to override the agent's instructions.",
			Remediation: "Treat server-supplied text as untrusted data, never as agent instructions.",
		},
		{
			ID:       "PRM-002",
			Check:    "prompt_injection",
			Severity: finding.SeverityHigh,
			Kind:     MatchRegex,
			Pattern:  `(?i)(^|\n)\s*(system|assistant|human|user)\s*:`,
			Title:    "Role-impersonation marker in capability metadata",
		},
		{
			ID:       "PRM-003",
			Check:    "prompt_injection",
			Severity: finding.SeverityHigh,
			Kind:     MatchRegex,
			Pattern:  `(?i)do\s+not\s+(tell|show|reveal|mention)\s+(this\s+)?(to\s+)?the\s+user`,
			Title:    "Concealment instruction in capability metadata",
		},

		// Tool poisoning.
		{
			ID:          "TP-001",
			Check:       "tool_poisoning",
			Severity:    finding.SeverityCritical,
			Kind:        MatchRegex,
			Pattern:     `(?i)always\s+(include|pass|send|attach).{0,60}(credential|token|api[_ -]?key|password|secret|authorization)`,
			Title:       "Tool description solicits credentials",
			Description: "The description instructs the agent to forward credentials through tool arguments.",
			Remediation: "Do not connect agents to this server; report the tool to its distributor.",
		},
		{
			ID:       "TP-002",
			Check:    "tool_poisoning",
			Severity: finding.SeverityHigh,
			Kind:     MatchRegex,
			Pattern:  `(?i)<\s*(important|secret|hidden|instructions?)\s*>`,
			Title:    "Hidden instruction block in capability metadata",
		},
		{
			ID:          "TP-003",
			Check:       "tool_poisoning",
			Severity:    finding.SeverityMedium,
			Kind:        MatchHexSig,
			Pattern:     "7f454c46",
			Title:       "Embedded binary content in capability metadata",
			Description: "Descriptor text carries an ELF header, suggesting smuggled binary content.",
		},

		// Auth bypass.
		{
			ID:       "AUTH-001",
			Check:    "auth_bypass",
			Severity: finding.SeverityCritical,
			Kind:     MatchRegex,
			Pattern:  `(?i)(skip|bypass|disable|without)\s+(any\s+)?(auth|authentication|authorization|verification|permission)`,
			Title:    "Authentication-bypass language in capability metadata",
		},

		// PII leakage.
		{
			ID:       "PII-001",
			Check:    "pii_leakage",
			Severity: finding.SeverityMedium,
			Kind:     MatchRegex,
			Pattern:  `(?i)\b(ssn|social\s+security\s+number|credit\s+card\s+number|passport\s+number|date\s+of\s+birth)\b`,
			Title:    "PII field referenced in capability metadata",
		},

		// Jailbreak.
		{
			ID:       "JB-001",
			Check:    "jailbreak",
			Severity: finding.SeverityMedium,
			Kind:     MatchRegex,
			Pattern:  `(?i)(jailbreak|dan\s+mode|developer\s+mode|without\s+(any\s+)?(restrictions|limitations|filters))`,
			Title:    "Jailbreak phrasing in capability metadata",
		},
	}
}
