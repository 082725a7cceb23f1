package sqlinline

const QEnsureCreditAccount = `--sql 45d3fe08-13bb-4b3f-9978-e327a5106aad
insert into credit_accounts (owner_id, balance, reserved, total_purchased, total_spent, created_at, updated_at)
values ($1::uuid, 0, 0, 0, 0, now(), now())
on conflict (owner_id) do nothing;
`

const QSelectCreditAccount = `--sql f798090c-7454-470d-9c0f-500ae1e3bda8
select owner_id, balance, reserved, total_purchased, total_spent, updated_at
from credit_accounts
where owner_id = $1::uuid
limit 1;
`

const QAdjustCreditAccount = `--sql b62c59f2-80d2-4602-9295-312cedd7ff71
update credit_accounts
set balance = balance + $2::numeric,
    total_purchased = total_purchased + $3::numeric,
    total_spent = total_spent + $4::numeric,
    updated_at = now()
where owner_id = $1::uuid
  and balance + $2::numeric >= reserved
returning balance;
`

const QInsertCreditTransaction = `--sql 658b2295-9e46-484d-a62d-337e18b9e056
insert into credit_transactions (id, owner_id, amount, type, description, content_id, idempotency_key, metadata, balance_after, created_at)
values (gen_random_uuid(), $1::uuid, $2::numeric, $3::text, $4::text, $5::uuid, nullif($6::text, ''), coalesce($7::jsonb, '{}'::jsonb), $8::numeric, now())
returning id, created_at;
`

const QSelectCreditTransactionByKey = `--sql 4c582f23-f3a5-4b4d-bd8a-75d05e1f8de4
select id, owner_id, amount, type, description, content_id, coalesce(idempotency_key, ''), metadata, balance_after, created_at
from credit_transactions
where owner_id = $1::uuid
  and idempotency_key = $2::text
limit 1;
`

const QListCreditTransactions = `--sql db9c455c-9bc6-4cb0-9351-8d44a160ae60
select id, owner_id, amount, type, description, content_id, coalesce(idempotency_key, ''), metadata, balance_after, created_at
from credit_transactions
where owner_id = $1::uuid
order by created_at desc
limit $2;
`

const QHoldCredits = `--sql 11defa56-56d4-4a4f-8216-0cc9326ebd2c
update credit_accounts
set reserved = reserved + $2::numeric,
    updated_at = now()
where owner_id = $1::uuid
  and balance - reserved >= $2::numeric
returning owner_id;
`

const QInsertCreditReservation = `--sql 235d876f-dea0-4c7f-9238-a5f6816b1ba1
insert into credit_reservations (id, owner_id, amount, status, created_at, updated_at)
values ($1::text, $2::uuid, $3::numeric, 'held', now(), now())
returning created_at;
`

const QSelectCreditReservationForUpdate = `--sql 529fa794-264c-4147-9104-60436b306466
select id, owner_id, amount, status, content_id, created_at
from credit_reservations
where id = $1::text
for update;
`

const QCaptureCreditHold = `--sql 9e20dc9a-f06d-4161-9a82-e95dbe2d5b89
update credit_accounts
set reserved = reserved - $2::numeric,
    balance = balance - $2::numeric,
    total_spent = total_spent + $2::numeric,
    updated_at = now()
where owner_id = $1::uuid
returning balance;
`

const QReleaseCreditHold = `--sql ecf4d871-3f49-468d-b89b-f0578931d36c
update credit_accounts
set reserved = greatest(reserved - $2::numeric, 0),
    updated_at = now()
where owner_id = $1::uuid;
`

const QSetCreditReservationStatus = `--sql 41585918-f786-420e-bf2a-14f73fe6fe8f
update credit_reservations
set status = $2::text,
    content_id = coalesce($3::uuid, content_id),
    updated_at = now()
where id = $1::text;
`
