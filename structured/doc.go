// Package structured recovers JSON values from free-form model output.
//
// Models asked for JSON often wrap it in Markdown fences, surround it with
// prose, or leave a trailing comma before a closing bracket. Extract and its
// variants tolerate all three. ParseClaims layers a sentence-splitting
// heuristic on top for responses that are not JSON at all.
package structured
