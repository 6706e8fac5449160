package config

// validConfigYAML is a minimal valid configuration for testing.
const validConfigYAML = `
apiVersion: authgate.avapigw.io/v1
kind: AuthGate
metadata:
  name: test-gate
spec:
  server:
    address: ":8080"
  authentication:
    realm: orders
    token:
      enabled: true
      tokens:
        - token: goodtoken
          principal: reader-1
          scope: [reader]
  authorization:
    classes:
      - name: orders
        rolesAllowed: [reader, writer]
    routes:
      - pattern: "GET /orders/{id}"
        class: orders
      - pattern: "DELETE /orders/{id}"
        denyAll: true
      - pattern: "GET /public"
        permitAll: true
`

// invalidConfigYAML fails validation.
const invalidConfigYAML = `
apiVersion: gateway.avapigw.io/v1
kind: Gateway
metadata:
  name: ""
`
