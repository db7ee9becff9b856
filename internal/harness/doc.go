// Package harness runs YAML scenario suites against the compiler.
//
// A suite lists requests together with what the compiler must produce for
// them: the domain and report chosen, fragments of the SQL, the bound
// parameters, or the error code. Cases marked golden additionally
// snapshot their SQL and parameters to golden/<suite>/<case>.golden next
// to the suite file.
//
//	name: cover
//	description: Vertragsabfragen
//	dialect: mssql
//	cases:
//	  - name: aktive-vertraege
//	    input: alle aktiven Verträge
//	    expect:
//	      domain: COVER
//	      report: Cover Übersicht
//	      params: [A]
//
// Every case compiles through a real Engine. Suites run in-process and never
// touch a database.
package harness
