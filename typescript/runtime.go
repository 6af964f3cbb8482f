package typescript

import (
	"fmt"
	"slices"
	"strings"

	"github.com/broady/fluidgen/convert"
)

// Header starts every generated file.
const Header = "// Auto-generated by fluidgen - DO NOT EDIT"

// Environment modes.
const (
	ModeUnified  = "unified"
	ModeSeparate = "separate"
)

// RuntimeOptions selects how the runtime resolves the API base URL.
type RuntimeOptions struct {
	// Target names the environment being generated for.
	Target string

	// Mode is ModeUnified or ModeSeparate.
	Mode string

	APIURL string

	// BackendHost and BackendPort are used by server-side code in unified
	// mode.
	BackendHost string
	BackendPort int
}

// externalTypes are the TypeScript types behind each allowlisted external.
var externalTypes = map[string]struct{ ts, doc string }{
	"DateTime":          {"string", "DateTime string type (ISO 8601)"},
	"Date":              {"string", "Date string type (YYYY-MM-DD)"},
	"Decimal":           {"string", "Decimal type, serialized as a string to keep precision"},
	"UUID":              {"string", "UUID string type"},
	"Path":              {"string", "File path string type"},
	"EmailStr":          {"string", "Email string type"},
	"HttpUrl":           {"string", "HTTP URL string type"},
	"PaymentCardNumber": {"string", "Payment card number string type"},
	"UploadFile":        {"Blob", "Uploaded file contents"},
}

// Runtime renders runtime.ts. The streaming declarations are included only
// when streaming is set.
func Runtime(opts RuntimeOptions, streaming bool) string {
	var b CodeBuilder
	b.Line(Header)
	b.Blank()
	b.Lines(`/**
 * fluidgen runtime utilities shared by the generated clients.
 */`)
	b.Blank()
	b.Block("export interface ApiResult<T = any> {", "}", func() {
		b.Line("data?: T;")
		b.Line("error?: string;")
		b.Line("status: number;")
		b.Line("success: boolean;")
	})
	b.Blank()
	fluidTypes(&b)
	b.Blank()
	baseURL(&b, opts)
	b.Blank()
	b.Lines(handleResponseSource)
	if streaming {
		b.Blank()
		b.Lines(streamingSource)
	}
	return b.String() + "\n"
}

func fluidTypes(b *CodeBuilder) {
	names := convert.ExternalNames()
	slices.Sort(names)
	b.Block("export namespace "+convert.ExternalNamespace+" {", "}", func() {
		for i, name := range names {
			if i > 0 {
				b.Blank()
			}
			t, ok := externalTypes[name]
			if !ok {
				t.ts = "any"
			}
			if t.doc != "" {
				b.Line("/** " + t.doc + " */")
			}
			b.Line(fmt.Sprintf("export type %s = %s;", name, t.ts))
		}
	})
}

func baseURL(b *CodeBuilder, opts RuntimeOptions) {
	b.Block("export function "+getBaseURLFn+"(): string {", "}", func() {
		if opts.Mode == ModeUnified {
			b.Block("if (typeof window !== 'undefined') {", "}", func() {
				b.Line("return '" + jsString(opts.APIURL) + "';")
			})
			b.Line(fmt.Sprintf("return 'http://%s:%d';", jsString(opts.BackendHost), opts.BackendPort))
			return
		}
		if opts.Target != "" {
			b.Line("// target: " + opts.Target)
		}
		b.Line("return '" + jsString(opts.APIURL) + "';")
	})
}

func jsString(s string) string {
	return strings.NewReplacer(`\`, `\\`, `'`, `\'`).Replace(s)
}

const handleResponseSource = `export async function handleResponse<T = any>(response: Response): Promise<ApiResult<T>> {
  const status = response.status;

  if (!response.ok) {
    let error: string;
    try {
      const errorBody = await response.json();
      error = errorBody.detail || errorBody.message || response.statusText;
    } catch {
      error = response.statusText || ` + "`HTTP ${status}`" + `;
    }
    return { error, status, success: false };
  }

  try {
    const data = await response.json();
    return { data, status, success: true };
  } catch {
    return { error: 'Failed to parse response JSON', status, success: false };
  }
}`

const streamingSource = `/**
 * Callbacks for Server-Sent Events endpoints.
 */
export interface SSECallbacks {
  onMessage?: (event: MessageEvent) => void;
  onError?: (event: Event) => void;
  onOpen?: (event: Event) => void;
  onClose?: () => void;
}

/**
 * Control handle for an open SSE connection.
 */
export interface SSEConnection {
  close(): void;
  readyState: number;
  url: string;
  addEventListener(type: string, listener: EventListener): void;
  removeEventListener(type: string, listener: EventListener): void;
}

export interface SSERequestInit extends EventSourceInit {
  headers?: Record<string, string>;
  timeout?: number;
  reconnectAttempts?: number;
  reconnectDelay?: number;
}

/**
 * Callbacks for JSON streaming endpoints.
 */
export interface StreamingCallbacks<T> {
  onChunk?: (chunk: T) => void;
  onError?: (error: Error) => void;
  onComplete?: () => void;
}

/**
 * Callbacks for text streaming endpoints.
 */
export interface TextStreamCallbacks {
  onChunk?: (text: string) => void;
  onError?: (error: Error) => void;
  onComplete?: () => void;
}`
