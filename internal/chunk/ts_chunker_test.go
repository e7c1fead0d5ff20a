package chunk

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTSChunker_FunctionDeclaration(t *testing.T) {
	src := []byte(`export function add(a: number, b: number): number {
  return a + b
}
`)
	chunks, err := newTSChunker("typescript").Chunk("math.ts", src)
	require.NoError(t, err)
	require.Len(t, chunks, 1)
	assert.Equal(t, "add", chunks[0].Identifier)
	assert.Equal(t, KindFunction, chunks[0].Kind)
	assert.Equal(t, 1, chunks[0].StartLine)
	assert.Equal(t, 3, chunks[0].EndLine)
}

func TestTSChunker_ArrowFunctionVariable(t *testing.T) {
	src := []byte(`const multiply = (a: number, b: number): number => {
  return a * b
}
`)
	chunks, err := newTSChunker("typescript").Chunk("math.ts", src)
	require.NoError(t, err)
	require.Len(t, chunks, 1)
	assert.Equal(t, "multiply", chunks[0].Identifier)
	assert.Equal(t, KindFunction, chunks[0].Kind)
}

func TestTSChunker_ClassAndMethods(t *testing.T) {
	src := []byte(`class Calculator {
  add(a: number, b: number): number {
    return a + b
  }

  subtract(a: number, b: number): number {
    return a - b
  }
}
`)
	chunks, err := newTSChunker("typescript").Chunk("calc.ts", src)
	require.NoError(t, err)
	require.Len(t, chunks, 3)

	assert.Equal(t, "Calculator", chunks[0].Identifier)
	assert.Equal(t, KindClass, chunks[0].Kind)

	assert.Equal(t, "add", chunks[1].Identifier)
	assert.Equal(t, KindMethod, chunks[1].Kind)
	assert.Equal(t, "Calculator", chunks[1].Parent)

	assert.Equal(t, "subtract", chunks[2].Identifier)
	assert.Equal(t, KindMethod, chunks[2].Kind)
	assert.Equal(t, "Calculator", chunks[2].Parent)
}

func TestTSChunker_InterfaceTypeEnum(t *testing.T) {
	src := []byte(`export interface User {
  id: string
}

export type UserId = string

export enum Role {
  Admin,
  Member,
}
`)
	chunks, err := newTSChunker("typescript").Chunk("user.ts", src)
	require.NoError(t, err)
	require.Len(t, chunks, 3)
	assert.Equal(t, "User", chunks[0].Identifier)
	assert.Equal(t, KindInterface, chunks[0].Kind)
	assert.Equal(t, "UserId", chunks[1].Identifier)
	assert.Equal(t, KindType, chunks[1].Kind)
	assert.Equal(t, "Role", chunks[2].Identifier)
	assert.Equal(t, KindEnum, chunks[2].Kind)
}

func TestTSChunker_SkipsNonFunctionConsts(t *testing.T) {
	src := []byte(`const x = 1
const y = { a: 1 }
`)
	chunks, err := newTSChunker("typescript").Chunk("consts.ts", src)
	require.NoError(t, err)
	assert.Empty(t, chunks)
}

func TestTSChunker_ContentMatchesLineSlice(t *testing.T) {
	src := []byte("function one() {\n  return 1\n}\n")
	chunks, err := newTSChunker("javascript").Chunk("one.js", src)
	require.NoError(t, err)
	require.Len(t, chunks, 1)
	assert.Equal(t, "function one() {\n  return 1\n}", chunks[0].Content)
}
