package types

type Channel uint32

type SampleRate uint32
