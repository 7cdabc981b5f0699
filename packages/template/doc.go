// Package template resolves {{name}} placeholders against a layered
// variable scope. The lexer produces literal/placeholder spans in one
// left-to-right scan; each placeholder is resolved exactly once, with no
// recursive re-substitution.
package template
