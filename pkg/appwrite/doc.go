/*
Package appwrite is a small client for the Appwrite REST API, covering the
parts of the Databases service the site uses.

Credentials are read from the environment and the resulting Services value is
passed explicitly to whatever needs it; there is no package-level client.
*/
package appwrite
