// Package stream turns an adapter's native stream into an ordered, bounded,
// cancellable chunk sequence.
//
// # Flow control
//
// A producer goroutine pulls chunks from the adapter's StreamReader and hands
// them to the consumer through a channel of fixed depth (DefaultBufferDepth
// unless configured). When the buffer is full the producer blocks, so a slow
// consumer suspends the upstream read instead of losing chunks. Chunks are
// delivered in exactly the order the adapter produced them.
//
// # Cancellation and release
//
// Stream.Close cancels the transport context handed to the adapter, waits for
// the producer to exit and releases the adapter's reader exactly once. After
// Close, Next never returns another chunk. Release hooks registered with
// OnRelease observe the final Outcome, which is how the cache, circuit breaker
// and rate limiter learn how a stream ended.
//
// # Failures
//
// A transport error after the stream opened is not retried. The consumer
// receives a terminal chunk with FinishReason "error" carrying a
// *providers.StreamInterruptedError, followed by io.EOF.
//
// Example:
//
//	mux := stream.New(64)
//	s, err := mux.Open(ctx, func(ctx context.Context) (providers.StreamReader, error) {
//	    return provider.StreamComplete(ctx, req)
//	})
//	if err != nil {
//	    return err
//	}
//	defer s.Close()
//
//	for {
//	    chunk, err := s.Next(ctx)
//	    if err == io.EOF {
//	        break
//	    }
//	    if err != nil {
//	        return err
//	    }
//	    fmt.Print(chunk.Delta)
//	}
package stream
