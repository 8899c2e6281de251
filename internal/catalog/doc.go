// Package catalog reads and writes the plaintext score library format.
//
// A catalog is a sequence of records separated by blank lines. Each line is
// "<Label>: <value>":
//
//	Print Number: 1
//	Composer: Bach, Johann Sebastian (1685--1750)
//	Title: Mass in B minor
//	Voice 1: S, Soprano
//	Partiture: yes
//
// Parse turns a stream into Print records, Format writes them back.
package catalog
