// Package exttool runs the external programs of the pipeline (depth
// computation, SV calling, VCF concatenation) as blocking subprocesses.
//
// Every invocation goes through an Invoker, so timeout and retry policy are
// applied uniformly and tests can substitute a fake.  A failed invocation
// returns an *Error carrying the tool name, its arguments, exit code and the
// tail of its stderr.
package exttool
