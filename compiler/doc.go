/*
Package compiler turns sets of parallel moves into sequential code.

Process of compilation

	Move-set Text ->
		parse ->
	Abstract Syntax Tree (ast) ->
		analyze ->
	Parallel Moves (ir) ->
		resolve (back, with an arch emitter) ->
	Assembly Text

One line of the text is

	[label:] [src -> dst [type] {; src -> dst [type]}] [// comment]

A labeled line starts a new program point, moves of unlabeled lines join
the current one. Locations are

	r3      core register
	r0:r1   core register pair
	f3      fp register
	f0:f1   fp register pair
	s16     stack slot, 32 bit
	d32     double stack slot, 64 bit
	q64     SIMD stack slot, 128 bit
	#-1     constant, also #0x10 and #1.5
	?       unallocated, the move is dropped

Types are i32, i64, f32, f64 and friends, see package tp.
They default to i64 for pairs and double slots, f32 or f64 for fp registers and
i32 otherwise.
*/
package compiler
