// Package publish pushes the rendered site.
//
// [Git] stages the rendered files in the site working tree, commits them
// with an "Automated update: <time>" message when anything changed and
// pushes the branch to the configured remote. [NoOp] replaces it when
// publishing is disabled.
package publish
