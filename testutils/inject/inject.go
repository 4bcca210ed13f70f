// Package inject provides dependency injected structures for mocking interfaces.
package inject
