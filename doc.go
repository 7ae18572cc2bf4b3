// Package kasm translates KASM assembly source into a relocatable KO
// object file for the kOS virtual machine's linker.
//
// The pipeline runs in five phases:
//  1. Lex source text into a token stream.
//     Also see: lexer.Lex
//  2. Expand conditionals, definitions, macros, .rep, and .include.
//     Also see: preprocess.Preprocessor.Run
//  3. Parse the expanded token stream into a Program.
//     Also see: parser.Parse
//  4. Resolve symbols and emit relocatable instructions and data in two
//     passes over the Program.
//     Also see: assemble.Assemble
//  5. Serialize the resolved Object into the KO binary container.
//     Also see: ko.Encode
//
// Resolvers
//
// A source.Resolver locates the targets of `.include` directives. The
// default, source.FileResolver, searches the including file's own
// directory and then each of Config.IncludeDirs in order.
//
// Assembler
//
// An Assembler runs the pipeline for one Config. A minimal Assembler that
// resolves includes relative to the working directory is:
//
//	asm := kasm.New(kasm.Config{})
//	unit := source.NewUnit("main.kasm", "main.kasm", data)
//	obj, err := asm.Assemble(unit)
//
// Assembler.Preprocess runs only the first two phases and renders the
// result back to KASM source text, for the `-p` preprocess-only flag
// implemented by cmd/kasm.
package kasm
