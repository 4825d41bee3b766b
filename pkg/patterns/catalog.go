// Package patterns is the detection rule catalog used by the prober and
// the analyzer. Rules are plain data; Engine compiles them once and
// evaluates any category with one generic counting pass.
package patterns

// Version identifies the rule set. It is stored with every analysis so
// scores can be traced back to the rules that produced them.
const Version = "2024.06-1"

// Category groups rules that are counted together.
type Category string

const (
	CategorySink            Category = "sink"
	CategorySource          Category = "source"
	CategoryPrototype       Category = "prototype-pollution"
	CategoryMerge           Category = "merge"
	CategoryFrameworkUnsafe Category = "framework-unsafe"
	CategoryInlineScript    Category = "inline-script"
	CategoryUserInput       Category = "user-input"
	CategoryContentEditable Category = "contenteditable"
	CategoryPostMessage     Category = "postmessage-handler"
	CategoryOriginCheck     Category = "origin-check"
	CategoryScriptSrc       Category = "script-src"
)

// Rule is one detection pattern. Expr uses ECMAScript regex syntax.
type Rule struct {
	ID         string
	Category   Category
	Expr       string
	IgnoreCase bool
}

// Rules is the full catalog. Order inside a category does not matter; a
// category count is the sum of non-overlapping matches of each rule.
var Rules = []Rule{
	// DOM sinks
	{ID: "sink-innerhtml", Category: CategorySink, Expr: `\.innerHTML\s*[=+]`},
	{ID: "sink-outerhtml", Category: CategorySink, Expr: `\.outerHTML\s*[=+]`},
	{ID: "sink-insertadjacenthtml", Category: CategorySink, Expr: `\.insertAdjacentHTML\s*\(`},
	{ID: "sink-document-write", Category: CategorySink, Expr: `document\.write(ln)?\s*\(`},
	{ID: "sink-eval", Category: CategorySink, Expr: `\beval\s*\(`},
	{ID: "sink-function-ctor", Category: CategorySink, Expr: `new\s+Function\s*\(`},
	{ID: "sink-settimeout-string", Category: CategorySink, Expr: `setTimeout\s*\(\s*["']`},
	{ID: "sink-setinterval-string", Category: CategorySink, Expr: `setInterval\s*\(\s*["']`},
	{ID: "sink-srcdoc", Category: CategorySink, Expr: `\.srcdoc\s*=`},
	{ID: "sink-location-nav", Category: CategorySink, Expr: `location\.(assign|replace|href)\s*[=(]`},
	{ID: "sink-src-from-location", Category: CategorySink, Expr: `\.src\s*=.*?(location|hash|search|href)`},
	{ID: "sink-href-from-location", Category: CategorySink, Expr: `\.href\s*=.*?(location|hash|search|href)`},
	{ID: "sink-event-attribute", Category: CategorySink, Expr: `setAttribute\s*\(\s*["']on\w+`},

	// Attacker-influenced sources
	{ID: "source-location-hash", Category: CategorySource, Expr: `location\.hash`},
	{ID: "source-location-search", Category: CategorySource, Expr: `location\.search`},
	{ID: "source-location-href", Category: CategorySource, Expr: `location\.href`},
	{ID: "source-referrer", Category: CategorySource, Expr: `document\.referrer`},
	{ID: "source-window-name", Category: CategorySource, Expr: `window\.name`},
	{ID: "source-message-listener", Category: CategorySource, Expr: `addEventListener\s*\(\s*["']message["']`},
	{ID: "source-urlsearchparams", Category: CategorySource, Expr: `new\s+URLSearchParams`},

	// Prototype pollution vectors
	{ID: "proto-object-assign", Category: CategoryPrototype, Expr: `Object\.assign\s*\(`},
	{ID: "proto-dunder", Category: CategoryPrototype, Expr: `__proto__`},
	{ID: "proto-constructor-index", Category: CategoryPrototype, Expr: `\[[\s'"]*constructor[\s'"]*\]`},
	{ID: "proto-prototype-write", Category: CategoryPrototype, Expr: `\.prototype\s*[=\[]`},
	{ID: "proto-setprototypeof", Category: CategoryPrototype, Expr: `Object\.setPrototypeOf`},
	{ID: "proto-object-create", Category: CategoryPrototype, Expr: `Object\.create`},

	// Object merge operations
	{ID: "merge-lodash", Category: CategoryMerge, Expr: `_\.merge\s*\(`},
	{ID: "merge-jquery-extend", Category: CategoryMerge, Expr: `\$\.extend\s*\(`},
	{ID: "merge-deepmerge", Category: CategoryMerge, Expr: `deepmerge\s*\(`},
	{ID: "merge-object-assign", Category: CategoryMerge, Expr: `Object\.assign\s*\(`},
	{ID: "merge-spread", Category: CategoryMerge, Expr: `\{\.\.\..*?\}`},
	{ID: "merge-named-function", Category: CategoryMerge, Expr: `function\s+\w*merge\w*\s*\(`, IgnoreCase: true},

	// Framework escape hatches
	{ID: "unsafe-react-dangerously", Category: CategoryFrameworkUnsafe, Expr: `dangerouslySetInnerHTML`},
	{ID: "unsafe-vue-v-html", Category: CategoryFrameworkUnsafe, Expr: `v-html`},
	{ID: "unsafe-angular-bind-html", Category: CategoryFrameworkUnsafe, Expr: `ng-bind-html`},
	{ID: "unsafe-angular-trust-html", Category: CategoryFrameworkUnsafe, Expr: `\$sce\.trustAsHtml`},

	// Page structure
	{ID: "inline-script-block", Category: CategoryInlineScript, Expr: `<script[^>]*>[\s\S]*?</script>`, IgnoreCase: true},
	{ID: "input-field", Category: CategoryUserInput, Expr: `<(input|textarea)[^>]*>`, IgnoreCase: true},
	{ID: "input-form", Category: CategoryUserInput, Expr: `<form[^>]*>`, IgnoreCase: true},
	{ID: "input-contenteditable-true", Category: CategoryUserInput, Expr: `contenteditable\s*=\s*["']true["']`, IgnoreCase: true},
	{ID: "contenteditable-any", Category: CategoryContentEditable, Expr: `contenteditable`, IgnoreCase: true},
	{ID: "script-src", Category: CategoryScriptSrc, Expr: `<script[^>]+src=["']([^"']+)["']`, IgnoreCase: true},

	// postMessage handlers and origin validation inside them
	{ID: "postmessage-handler", Category: CategoryPostMessage, Expr: `addEventListener\s*\(\s*["']message["'].*?\{[\s\S]{0,500}?\}`},
	{ID: "origin-compare", Category: CategoryOriginCheck, Expr: `origin\s*[!=]=`},
}

// Fingerprint identifies a front-end framework in the lower-cased page.
type Fingerprint struct {
	Name string
	Expr string

	// VirtualDOM marks frameworks that escape output by default, which
	// lowers reflected/stored XSS suitability.
	VirtualDOM bool
}

// Frameworks lists fingerprints in reporting order.
var Frameworks = []Fingerprint{
	{Name: "React", Expr: `react|_react|reactdom`, VirtualDOM: true},
	{Name: "Vue", Expr: `vue\.js|__vue__|vue-`, VirtualDOM: true},
	{Name: "Angular", Expr: `angular|ng-|_angular`, VirtualDOM: true},
	{Name: "Svelte", Expr: `svelte`, VirtualDOM: true},
	{Name: "Ember", Expr: `ember`},
}

// LibrarySignature extracts a library version (first capture group) and
// flags it when the version starts with one of VulnerablePrefixes.
type LibrarySignature struct {
	Name               string
	Expr               string
	VulnerablePrefixes []string
}

// Libraries is the vulnerable-library list.
var Libraries = []LibrarySignature{
	{
		Name:               "jQuery",
		Expr:               `jQuery\s+v?(\d+\.\d+\.\d+)`,
		VulnerablePrefixes: []string{"1.", "2.", "3.0.", "3.1.", "3.2.", "3.3.", "3.4.0", "3.4.1"},
	},
	{
		Name:               "lodash",
		Expr:               `lodash.*?(\d+\.\d+\.\d+)`,
		VulnerablePrefixes: []string{"4.17.19", "4.17.18", "4.17.17", "4.17.16", "4.17.15"},
	},
}

// Header and keyword vocabularies. All entries are lower-case.
var (
	// WAFHeaders are the response headers inspected for WAF/CDN tokens.
	WAFHeaders = []string{"x-waf", "x-cdn", "server", "x-powered-by", "cf-ray"}

	// WAFTokens mark a WAF or CDN when found in one of WAFHeaders.
	WAFTokens = []string{"cloudflare", "akamai", "imperva", "f5", "waf"}

	// CSPUnsafeTokens make a Content-Security-Policy weak.
	CSPUnsafeTokens = []string{"'unsafe-inline'", "'unsafe-eval'"}

	// AuthKeywords mark a page as authentication-related during analysis.
	AuthKeywords = []string{"login", "signin", "password", "csrf", "auth-token", "authenticate"}

	// AuthIndicators is the prober vocabulary. A hit only counts when it is
	// also found in one of the IndicatorContexts.
	AuthIndicators = []string{
		"login", "sign in", "sign-in", "log in", "log-in",
		"authenticate", "password", "username", "email",
		"forgot password", "forgot-password",
		"reset password", "reset-password",
		"create account", "create-account",
		"register", "sign up", "sign-up",
	}

	// IndicatorContexts wrap an escaped indicator: inside a tag, inside a
	// double- or single-quoted string, or as a whole word.
	IndicatorContexts = []string{`<[^>]*%s[^>]*>`, `"%s"`, `'%s'`, `\b%s\b`}
)
