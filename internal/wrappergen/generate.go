package wrappergen

import (
	"strings"
	"text/template"
)

// DefaultProxyURL is the fixed internal endpoint of the binding proxy. The
// generated module talks to it for every quota-checked vector operation.
const DefaultProxyURL = "https://binding-proxy.internal/rpc"

// moduleIR is everything the template needs, resolved and validated before
// rendering begins. No generator state leaks into the output: the rendered
// module is a deterministic function of this value alone.
type moduleIR struct {
	Module    string
	ProjectID string
	OrgID     string
	Actors    []string
	Bindings  []VectorBinding
	ProxyURL  string
}

// Generate renders the instrumented entry module for spec. The billing
// identity (projectId/orgId) is hardcoded into the output as literals, so
// tenant code has no way to spoof it at runtime.
func Generate(spec Spec) (string, error) {
	if err := spec.validate(); err != nil {
		return "", err
	}

	ir := moduleIR{
		Module:    spec.OriginalModule,
		ProjectID: spec.ProjectID,
		OrgID:     spec.OrgID,
		Actors:    spec.DOClassNames,
		Bindings:  spec.VectorizeBindings,
		ProxyURL:  DefaultProxyURL,
	}

	var out strings.Builder
	if err := moduleTemplate.Execute(&out, ir); err != nil {
		return "", err
	}

	return out.String(), nil
}

var moduleTemplate = template.Must(template.New("wrapper").Funcs(template.FuncMap{
	"js": template.JSEscapeString,
}).Parse(`// Code generated by wrappergen. DO NOT EDIT.
{{- if .Actors}}
import { {{range $i, $name := .Actors}}{{if $i}}, {{end}}{{$name}} as __original_{{$name}}{{end}} } from "{{js .Module}}";
{{- end}}
import __original_default from "{{js .Module}}";

const __PROJECT_ID = "{{js .ProjectID}}";
const __ORG_ID = "{{js .OrgID}}";

function __recordInvocation(target, method) {
  globalThis.__usageChannel?.record({
    projectId: __PROJECT_ID,
    orgId: __ORG_ID,
    target,
    method,
  });
}
{{- if .Actors}}

// Wraps a stateful-actor class so construction and every method call are
// metered. Methods are intercepted at property access, so the wrapper works
// for methods unknown at generation time.
function __wrapActor(Base, className) {
  return class extends Base {
    constructor(...args) {
      super(...args);
      __recordInvocation(className, "constructor");
      return new Proxy(this, {
        get(target, prop, receiver) {
          const value = Reflect.get(target, prop, receiver);
          if (typeof value !== "function") {
            return value;
          }
          return function (...callArgs) {
            __recordInvocation(className, String(prop));
            return value.apply(target, callArgs);
          };
        },
      });
    }
  };
}
{{range .Actors}}
export const {{.}} = __wrapActor(__original_{{.}}, "{{js .}}");
{{- end}}
{{- end}}
{{- if .Bindings}}

const __VECTOR_BINDINGS = {
{{- range .Bindings}}
  "{{js .BindingName}}": "{{js .IndexName}}",
{{- end}}
};

// Quota-checked client with the same surface as the index it replaces.
function __meteredVectorize(indexName) {
  async function call(operation, params) {
    const res = await fetch("{{js .ProxyURL}}", {
      method: "POST",
      headers: { "Content-Type": "application/json" },
      body: JSON.stringify({ operation, index_name: indexName, params }),
    });
    if (res.status === 429) {
      const body = await res.json().catch(() => ({}));
      const err = new Error(body.message || "vector index quota exceeded");
      err.code = body.code || "QUOTA_EXCEEDED";
      err.resetIn = body.resetIn;
      throw err;
    }
    if (!res.ok) {
      throw new Error("vectorize " + operation + " failed: " + (await res.text()));
    }
    return res.json();
  }
  return {
    query: (vector, options) => call("query", { vector, options }),
    upsert: (vectors) => call("upsert", { vectors }),
    insert: (vectors) => call("upsert", { vectors }),
    deleteByIds: (ids) => call("deleteByIds", { ids }),
    getByIds: (ids) => call("getByIds", { ids }),
    describe: () => call("describe", {}),
  };
}

function __wrapEnv(env) {
  const wrapped = Object.create(env);
  for (const [binding, indexName] of Object.entries(__VECTOR_BINDINGS)) {
    Object.defineProperty(wrapped, binding, {
      value: __meteredVectorize(indexName),
      enumerable: true,
    });
  }
  return wrapped;
}

// Intercepts any callable lifecycle handler on the default export and swaps
// its environment argument for the quota-checked one. Handlers are not
// enumerated: whatever the runtime invokes gets forwarded.
const __wrapped_default = new Proxy(__original_default, {
  get(target, prop, receiver) {
    const value = Reflect.get(target, prop, receiver);
    if (typeof value !== "function") {
      return value;
    }
    return function (event, env, ctx) {
      __recordInvocation("default", String(prop));
      return value.call(target, event, __wrapEnv(env), ctx);
    };
  },
});

export default __wrapped_default;
{{- else}}

export default __original_default;
{{- end}}
`))
