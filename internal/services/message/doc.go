// Package message adds acknowledgements on top of a relay connection.
//
// Every outbound payload is wrapped as {"type":"message","payload":{id,payload}}
// with a fresh random id. Send completes only when the receiver answers with
// {"type":"ack","payload":{id}}, which it does after its Handler returns nil.
// Acknowledgement therefore means "processed", not merely "received".
//
// An ack with no pending send is logged and ignored. Sends can be bounded
// with AckTimeout and retried with Retries; a retry reuses the same id, so a
// receiver may process a payload more than once.
package message
