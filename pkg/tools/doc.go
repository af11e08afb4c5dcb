// Package tools holds the client-side function registry and the dispatcher
// that answers the model's function calls.
//
// Tools are looked up case-insensitively. Every call the dispatcher sees
// gets exactly one function_call_output followed by exactly one
// response.create, whether the tool is missing, its arguments fail to
// parse, or its handler errors or panics.
//
// Tools come from three places: Go functions with typed arguments
// ([NewFunc]), HTTP endpoints declared in YAML ([LoadHTTPTools]), and the
// built-in [CurrentTime] tool.
package tools
